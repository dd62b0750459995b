package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/pkg/httputil"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Client reads the fund NAV history table (F10 lsjz)
// ⭐ SSOT: 净值 이력 페이지 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a NAV history client.
// Attach a rate limiter to httpClient to stay polite to the upstream.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("eastmoney"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Fetch returns the most recent NAV record of officialCode.
// Errors wrap contracts.ErrNotYetAvailable.
func (c *Client) Fetch(ctx context.Context, officialCode string) (contracts.OfficialReturn, error) {
	params := url.Values{
		"type": {"lsjz"},
		"code": {officialCode},
		"page": {"1"},
		"per":  {"1"},
	}
	u := fmt.Sprintf("%s/F10DataApi.aspx?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.GetWithHeaders(ctx, u, map[string]string{
		"Referer": "https://fundf10.eastmoney.com/",
	})
	if err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: %v", contracts.ErrNotYetAvailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: unexpected status code: %d", contracts.ErrNotYetAvailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: read body: %v", contracts.ErrNotYetAvailable, err)
	}

	result, err := ParseLatest(string(body))
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"code":   officialCode,
			"reason": err.Error(),
		}).Debug("Official growth not available")
		return contracts.OfficialReturn{}, err
	}
	return result, nil
}

// ParseLatest extracts (growth, date) from the first row of
//
//	var apidata={ content:"<table>...</table>",records:1,pages:1,curpage:1};
//
// Columns: 0 净值日期, 1 单位净值, 2 累计净值, 3 日增长率.
func ParseLatest(body string) (contracts.OfficialReturn, error) {
	html, err := extractContent(body)
	if err != nil {
		return contracts.OfficialReturn{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: parse html: %v", contracts.ErrNotYetAvailable, err)
	}

	row := doc.Find("tbody tr").First()
	cells := row.Find("td")
	if cells.Length() < 4 {
		// "暂无数据" 행은 colspan 하나뿐
		return contracts.OfficialReturn{}, fmt.Errorf("%w: no nav record", contracts.ErrNotYetAvailable)
	}

	asOf := strings.TrimSpace(cells.Eq(0).Text())
	growthText := strings.TrimSpace(cells.Eq(3).Text())
	growthText = strings.TrimSpace(strings.TrimSuffix(growthText, "%"))

	if asOf == "" {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: blank date", contracts.ErrNotYetAvailable)
	}
	if growthText == "" || growthText == "--" {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: blank growth", contracts.ErrNotYetAvailable)
	}

	growth, err := strconv.ParseFloat(growthText, 64)
	if err != nil {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: growth %q", contracts.ErrNotYetAvailable, growthText)
	}

	return contracts.OfficialReturn{GrowthPct: growth, AsOf: asOf}, nil
}

// extractContent returns the HTML inside content:"..."; the table uses single quotes only
func extractContent(body string) (string, error) {
	const marker = `content:"`
	start := strings.Index(body, marker)
	if start < 0 {
		return "", fmt.Errorf("%w: no content field", contracts.ErrNotYetAvailable)
	}
	rest := body[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated content field", contracts.ErrNotYetAvailable)
	}
	return rest[:end], nil
}
