package contracts

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultFactor applies when a fund has never been calibrated
const DefaultFactor = 1.0

// Holding is one disclosed position of a fund basket
type Holding struct {
	Code   string  `json:"code"`
	Weight float64 `json:"weight"`
}

// Fund is one entry of the fund configuration document (funds.json)
// ⭐ SSOT: 펀드 설정 구조
//
// Keys the engine does not know about are carried through Marshal/Unmarshal
// untouched, so operator-maintained fields survive a calibration write.
type Fund struct {
	Holdings     []Holding
	ShadowCode   string
	ShadowWeight float64
	Factor       *float64 // nil = never calibrated
	OfficialCode string

	extra map[string]json.RawMessage
}

var fundKnownKeys = []string{"holdings", "shadow_code", "shadow_weight", "factor", "official_code"}

// EffectiveFactor returns the stored factor, or DefaultFactor when unset
func (f Fund) EffectiveFactor() float64 {
	if f.Factor == nil {
		return DefaultFactor
	}
	return *f.Factor
}

// WithFactor returns a copy of the fund carrying the given factor
func (f Fund) WithFactor(factor float64) Fund {
	f.Factor = &factor
	return f
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Fund) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Fund
	decode := func(key string, dest interface{}) error {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return nil
		}
		if err := json.Unmarshal(v, dest); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		return nil
	}

	if err := decode("holdings", &out.Holdings); err != nil {
		return err
	}
	if err := decode("shadow_code", &out.ShadowCode); err != nil {
		return err
	}
	if err := decode("shadow_weight", &out.ShadowWeight); err != nil {
		return err
	}
	if v, ok := raw["factor"]; ok && string(v) != "null" {
		var factor float64
		if err := json.Unmarshal(v, &factor); err != nil {
			return fmt.Errorf("field factor: %w", err)
		}
		out.Factor = &factor
	}
	if err := decode("official_code", &out.OfficialCode); err != nil {
		return err
	}

	for _, k := range fundKnownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		out.extra = raw
	}

	*f = out
	return nil
}

// MarshalJSON implements json.Marshaler
func (f Fund) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(f.extra)+5)
	for k, v := range f.extra {
		out[k] = v
	}

	holdings := f.Holdings
	if holdings == nil {
		holdings = []Holding{}
	}
	out["holdings"] = holdings

	if f.ShadowCode != "" {
		out["shadow_code"] = f.ShadowCode
	}
	if f.ShadowWeight != 0 {
		out["shadow_weight"] = f.ShadowWeight
	}
	if f.Factor != nil {
		out["factor"] = *f.Factor
	}
	if f.OfficialCode != "" {
		out["official_code"] = f.OfficialCode
	}

	return json.Marshal(out)
}

// FundSet is the whole configuration document, keyed by fund display name
type FundSet map[string]Fund

// Names returns fund names in a stable order
func (s FundSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Codes returns the de-duplicated union of holding and shadow codes plus extra codes,
// i.e. everything one batched quote request has to cover
func (s FundSet) Codes(extra ...string) []string {
	seen := make(map[string]struct{})
	var codes []string
	add := func(code string) {
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, code := range extra {
		add(code)
	}
	for _, name := range s.Names() {
		fund := s[name]
		for _, h := range fund.Holdings {
			add(h.Code)
		}
		add(fund.ShadowCode)
	}
	return codes
}
