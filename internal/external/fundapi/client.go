package fundapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/pkg/httputil"
	"github.com/wonny/hawkeye/pkg/logger"
)

// successCode is the envelope code of a successful response
const successCode = 200

// Client fetches the latest official daily growth from the fund detail API
// ⭐ SSOT: 펀드 상세 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a fund detail API client limited to perSecond requests
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string, perSecond float64) *Client {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("fundapi"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

type detailResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Code          string          `json:"code"`
		Name          string          `json:"name"`
		NetWorthDate  string          `json:"netWorthDate"`
		LastDayGrowth json.RawMessage `json:"lastDayGrowth"`
	} `json:"data"`
}

// Fetch returns the most recent published growth of officialCode.
// No data, a blank growth figure and transport failure all wrap contracts.ErrNotYetAvailable.
func (c *Client) Fetch(ctx context.Context, officialCode string) (contracts.OfficialReturn, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: rate limit wait: %v", contracts.ErrNotYetAvailable, err)
	}

	u := fmt.Sprintf("%s/v1/fund/detail?%s", c.baseURL, url.Values{"code": {officialCode}}.Encode())

	resp, err := c.httpClient.Get(ctx, u)
	if err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: %v", contracts.ErrNotYetAvailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: unexpected status code: %d", contracts.ErrNotYetAvailable, resp.StatusCode)
	}

	var body detailResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: decode: %v", contracts.ErrNotYetAvailable, err)
	}

	result, err := body.officialReturn()
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"code":   officialCode,
			"reason": err.Error(),
		}).Debug("Official growth not available")
		return contracts.OfficialReturn{}, err
	}

	return result, nil
}

func (r detailResponse) officialReturn() (contracts.OfficialReturn, error) {
	if r.Code != successCode || r.Data == nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: api code %d %s", contracts.ErrNotYetAvailable, r.Code, r.Message)
	}

	growth, ok := parseGrowth(r.Data.LastDayGrowth)
	if !ok {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: blank growth", contracts.ErrNotYetAvailable)
	}

	asOf := strings.TrimSpace(r.Data.NetWorthDate)
	if asOf == "" {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: missing net worth date", contracts.ErrNotYetAvailable)
	}

	return contracts.OfficialReturn{GrowthPct: growth, AsOf: asOf}, nil
}

// parseGrowth accepts "1.23", "1.23%", 1.23; "", "--" and null are blank
func parseGrowth(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, false
		}
		return f, true
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "--" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
