package tencent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/pkg/httputil"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Client fetches live quotes from the qt.gtimg.cn quote feed
// ⭐ SSOT: 실시간 시세 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a quote feed client.
// The http client should have retries disabled: a failed cycle is retried by the caller.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("tencent"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Fetch requests every code in one batch.
// Any transport failure, or a response in which no record parses, is reported
// as contracts.ErrQuotesUnavailable; codes the feed does not return are simply
// absent from the map.
func (c *Client) Fetch(ctx context.Context, codes []string) (contracts.QuoteMap, error) {
	if len(codes) == 0 {
		return contracts.QuoteMap{}, nil
	}

	url := fmt.Sprintf("%s/q=%s", c.baseURL, strings.Join(codes, ","))

	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"Referer": "https://gu.qq.com/",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrQuotesUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", contracts.ErrQuotesUnavailable, resp.StatusCode)
	}

	// 응답은 GBK 인코딩
	body, err := io.ReadAll(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", contracts.ErrQuotesUnavailable, err)
	}

	quotes, dropped := ParseQuotes(string(body))
	if dropped > 0 {
		c.logger.WithField("dropped", dropped).Debug("Dropped malformed quote records")
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no quote record in response (dropped %d)", contracts.ErrQuotesUnavailable, dropped)
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(codes),
		"resolved":  len(quotes),
	}).Debug("Fetched quotes")

	return quotes, nil
}
