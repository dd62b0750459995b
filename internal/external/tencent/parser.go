package tencent

import (
	"strconv"
	"strings"

	"github.com/wonny/hawkeye/internal/contracts"
)

// minFields is the shortest payload accepted; shorter records are truncated or errors
const minFields = 31

// Field positions in the ~-separated payload
const (
	fieldName      = 1
	fieldCurrent   = 3
	fieldPrevClose = 4
)

// ParseQuotes parses a feed response of the form
//
//	v_sh600519="1~贵州茅台~600519~1700.00~1690.00~...";
//
// and returns the parsed quotes plus the number of records dropped as malformed.
// A bad record never aborts the rest of the batch.
func ParseQuotes(body string) (contracts.QuoteMap, int) {
	quotes := make(contracts.QuoteMap)
	dropped := 0

	for _, record := range strings.Split(body, ";") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		code, quote, ok := parseRecord(record)
		if !ok {
			dropped++
			continue
		}
		quotes[code] = quote
	}

	return quotes, dropped
}

func parseRecord(record string) (string, contracts.Quote, bool) {
	key, payload, ok := strings.Cut(record, "=")
	if !ok {
		return "", contracts.Quote{}, false
	}

	// v_sh600519, v_s_sh000001 → code after the last underscore
	key = strings.TrimSpace(key)
	code := key[strings.LastIndex(key, "_")+1:]
	if code == "" {
		return "", contracts.Quote{}, false
	}

	payload = strings.Trim(strings.TrimSpace(payload), `"`)
	fields := strings.Split(payload, "~")
	if len(fields) < minFields {
		return "", contracts.Quote{}, false
	}

	current, err := strconv.ParseFloat(strings.TrimSpace(fields[fieldCurrent]), 64)
	if err != nil {
		return "", contracts.Quote{}, false
	}
	prevClose, err := strconv.ParseFloat(strings.TrimSpace(fields[fieldPrevClose]), 64)
	if err != nil {
		return "", contracts.Quote{}, false
	}

	return code, contracts.Quote{
		Name:      strings.ReplaceAll(fields[fieldName], " ", ""),
		ChangePct: contracts.ChangePct(current, prevClose),
	}, true
}
