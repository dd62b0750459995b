package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/internal/valuation"
)

// TextRenderer writes the board as plain text
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer creates a text renderer writing to w
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Render implements Renderer
func (t *TextRenderer) Render(_ context.Context, board *engine.Board) error {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "  %s  (%s)\n", board.At.Format("2006-01-02 15:04:05"), board.Day)
	b.WriteString("───────────────────────────────────────────────────────────\n")

	if !board.Available {
		b.WriteString("⚠️  no data this cycle, retrying\n")
		_, err := io.WriteString(t.w, b.String())
		return err
	}

	indices := make([]string, 0, len(board.Indices))
	for _, idx := range board.Indices {
		if !idx.Resolved {
			indices = append(indices, fmt.Sprintf("%s --", idx.Name))
			continue
		}
		indices = append(indices, fmt.Sprintf("%s %s", idx.Name, signedPct(idx.ChangePct)))
	}
	if len(indices) > 0 {
		fmt.Fprintf(&b, "  %s\n", strings.Join(indices, " | "))
		b.WriteString("───────────────────────────────────────────────────────────\n")
	}

	for _, est := range board.Funds {
		writeFund(&b, est)
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func writeFund(b *strings.Builder, est valuation.Estimate) {
	fmt.Fprintf(b, "%s %-20s %9s   mixed %s × %.4f   holdings %d/%d   shadow %s\n",
		arrow(est.Direction()),
		est.Fund,
		signedPct(est.Final),
		signedPct(est.Mixed),
		est.Factor,
		est.ResolvedHoldings,
		est.TotalHoldings,
		est.ShadowName,
	)
	for _, h := range est.Top {
		fmt.Fprintf(b, "     • %-12s %9s\n", h.Name, signedPct(h.ChangePct))
	}
}

func signedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func arrow(direction int) string {
	switch direction {
	case 1:
		return "▲"
	case -1:
		return "▼"
	default:
		return "■"
	}
}
