package valuation

import (
	"github.com/wonny/hawkeye/internal/contracts"
)

// maxTopHoldings caps the per-fund holding breakdown shown on the board
const maxTopHoldings = 5

// UnconfiguredShadow is the display name when a fund has no resolved shadow
const UnconfiguredShadow = "unconfigured"

// HoldingChange is one resolved holding in the breakdown
type HoldingChange struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	ChangePct float64 `json:"change_pct"`
}

// Estimate is the blended intraday return of one fund, in percent
// ⭐ SSOT: 펀드 추정 수익률 구조
type Estimate struct {
	Fund string `json:"fund"`

	Raw    float64 `json:"raw"`    // holdings-weighted change
	Shadow float64 `json:"shadow"` // shadow instrument change, 0 if unresolved
	Mixed  float64 `json:"mixed"`  // pre-factor blend, what snapshots store
	Final  float64 `json:"final"`  // Mixed × Factor, what the board shows

	Factor       float64 `json:"factor"`
	ShadowWeight float64 `json:"shadow_weight"`

	ShadowCode     string `json:"shadow_code,omitempty"`
	ShadowName     string `json:"shadow_name"`
	ShadowResolved bool   `json:"shadow_resolved"`

	ResolvedHoldings int             `json:"resolved_holdings"`
	TotalHoldings    int             `json:"total_holdings"`
	Top              []HoldingChange `json:"top"`
}

// Direction returns +1, -1 or 0 for the sign of the final estimate
func (e Estimate) Direction() int {
	switch {
	case e.Final > 0:
		return 1
	case e.Final < 0:
		return -1
	default:
		return 0
	}
}

// Blend computes the estimate of one fund from a quote map.
// Pure: the same inputs always give the same Estimate, nothing else is touched.
//
//	raw   = Σ(change×w) / Σw over resolved holdings (0 when none resolve)
//	mixed = raw×(1−sw) + shadow×sw
//	final = mixed×factor
func Blend(name string, fund contracts.Fund, quotes contracts.QuoteMap) Estimate {
	est := Estimate{
		Fund:          name,
		Factor:        fund.EffectiveFactor(),
		ShadowWeight:  fund.ShadowWeight,
		ShadowCode:    fund.ShadowCode,
		ShadowName:    UnconfiguredShadow,
		TotalHoldings: len(fund.Holdings),
		Top:           []HoldingChange{},
	}

	// 1. 보유종목 가중 평균
	var weighted, weights float64
	for _, h := range fund.Holdings {
		q, ok := quotes[h.Code]
		if !ok {
			continue
		}
		weighted += q.ChangePct * h.Weight
		weights += h.Weight
		est.ResolvedHoldings++
		if len(est.Top) < maxTopHoldings {
			est.Top = append(est.Top, HoldingChange{Code: h.Code, Name: q.Name, ChangePct: q.ChangePct})
		}
	}
	if weights > 0 {
		est.Raw = weighted / weights
	}

	// 2. 섀도우 종목
	if fund.ShadowCode != "" {
		if q, ok := quotes[fund.ShadowCode]; ok {
			est.Shadow = q.ChangePct
			est.ShadowName = q.Name
			est.ShadowResolved = true
		}
	}

	// 3. mix, 4. factor
	est.Mixed = Mix(est.Raw, est.Shadow, fund.ShadowWeight)
	est.Final = est.Mixed * est.Factor

	return est
}

// Mix blends the holdings and shadow estimates. shadowWeight 0 returns raw unchanged.
func Mix(raw, shadow, shadowWeight float64) float64 {
	return raw*(1-shadowWeight) + shadow*shadowWeight
}

// BlendAll estimates every fund, ordered by fund name
func BlendAll(funds contracts.FundSet, quotes contracts.QuoteMap) []Estimate {
	names := funds.Names()
	out := make([]Estimate, 0, len(names))
	for _, name := range names {
		out = append(out, Blend(name, funds[name], quotes))
	}
	return out
}

// MixedByFund extracts the pre-factor estimates keyed by fund, as snapshotted
func MixedByFund(estimates []Estimate) map[string]float64 {
	out := make(map[string]float64, len(estimates))
	for _, e := range estimates {
		out[e.Fund] = e.Mixed
	}
	return out
}
