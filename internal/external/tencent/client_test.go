package tencent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/httputil"
	"github.com/wonny/hawkeye/pkg/logger"
)

func newTestClient(url string) *Client {
	hc := httputil.New(config.HTTPConfig{Timeout: time.Second}, logger.Nop()).DisableRetry()
	return NewClient(hc, logger.Nop(), url)
}

func TestClient_Fetch(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(
		record("sh600519", "贵州茅台", "1717.00", "1700.00", 40) + "\n" +
			record("sz000001", "平安银行", "9.9", "10", 40),
	)
	require.NoError(t, err)

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(gbk))
	}))
	defer server.Close()

	quotes, err := newTestClient(server.URL).Fetch(context.Background(), []string{"sh600519", "sz000001", "sz999999"})
	require.NoError(t, err)

	assert.Equal(t, "/q=sh600519,sz000001,sz999999", gotPath)
	assert.Len(t, quotes, 2)
	assert.Equal(t, "贵州茅台", quotes["sh600519"].Name, "decoded from GBK")
	assert.InDelta(t, -1.0, quotes["sz000001"].ChangePct, 1e-9)
	_, ok := quotes["sz999999"]
	assert.False(t, ok, "unknown code absent, not zero")
}

func TestClient_FetchUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Fetch(context.Background(), []string{"sh600519"})
	assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable))

	server.Close()
	_, err = newTestClient(server.URL).Fetch(context.Background(), []string{"sh600519"})
	assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable), "connection refused")
}

func TestClient_FetchEmptyResponse(t *testing.T) {
	bodies := map[string]string{
		"empty":     "",
		"no record": `v_pv_none_match="1";`,
		"malformed": `v_sh600519="1~贵州茅台~600519";`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			gbk, err := simplifiedchinese.GBK.NewEncoder().String(body)
			require.NoError(t, err)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(gbk))
			}))
			defer server.Close()

			quotes, err := newTestClient(server.URL).Fetch(context.Background(), []string{"sh600519"})
			assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable))
			assert.Nil(t, quotes)
		})
	}
}

func TestClient_FetchNoCodes(t *testing.T) {
	quotes, err := newTestClient("http://127.0.0.1:1").Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
