package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldHunter0/Trend-Autostop/internal/exchange"
)

// newServerClient points a client at a stub API server.
func newServerClient(baseURL string) *Client {
	return &Client{
		httpClient: bybit_api.NewBybitHttpClient("key", "secret", bybit_api.WithBaseURL(baseURL)),
		retryCfg:   fastRetryConfig(),
	}
}

func apiResponse(retCode int, retMsg, result string) string {
	return fmt.Sprintf(`{"retCode":%d,"retMsg":%q,"result":%s,"retExtInfo":{},"time":1700000000000}`, retCode, retMsg, result)
}

func TestCheckTradingStopResponse(t *testing.T) {
	assert.NoError(t, checkTradingStopResponse(&bybit_api.ServerResponse{RetCode: 0, RetMsg: "OK"}))

	err := checkTradingStopResponse(&bybit_api.ServerResponse{RetCode: ErrCodeStopNotModified, RetMsg: "not modified"})
	require.Error(t, err)
	assert.True(t, IsStopNotModifiedError(err))

	err = checkTradingStopResponse(&bybit_api.ServerResponse{RetCode: 10001, RetMsg: "params error"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params error")

	assert.Error(t, checkTradingStopResponse("not a server response"))
}

func TestSetStopLoss_RejectionIsAnError(t *testing.T) {
	// Bybit reports rejections as HTTP 200 with a non-zero retCode. A nil
	// transport error must not be mistaken for success.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, apiResponse(10001, "params error: stopLoss invalid", "{}"))
	}))
	defer srv.Close()

	c := newServerClient(srv.URL)
	err := c.SetStopLoss(context.Background(), &exchange.Position{Symbol: "BTCUSDT"}, 42000)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopLoss invalid")
}

func TestSetStopLoss_UnchangedStopIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, apiResponse(ErrCodeStopNotModified, "stop loss not modified", "{}"))
	}))
	defer srv.Close()

	c := newServerClient(srv.URL)
	assert.NoError(t, c.SetStopLoss(context.Background(), &exchange.Position{Symbol: "BTCUSDT"}, 42000))
}

func TestSetStopLoss_Accepted(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, apiResponse(0, "OK", "{}"))
	}))
	defer srv.Close()

	c := newServerClient(srv.URL)
	require.NoError(t, c.SetStopLoss(context.Background(), &exchange.Position{Symbol: "BTCUSDT"}, 42000))
	assert.Equal(t, 1, requests)
}

func TestSetStopLoss_NonRetryableRejectionIsNotRetried(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, apiResponse(10001, "params error", "{}"))
	}))
	defer srv.Close()

	c := newServerClient(srv.URL)
	require.Error(t, c.SetStopLoss(context.Background(), &exchange.Position{Symbol: "BTCUSDT"}, 42000))
	assert.Equal(t, 1, requests)
}

func TestGetKlines_RetriesRateLimit(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if requests == 1 {
			fmt.Fprint(w, apiResponse(ErrCodeRateLimitExceeded, "rate limit", "{}"))
			return
		}
		fmt.Fprint(w, apiResponse(0, "OK",
			`{"symbol":"BTCUSDT","category":"linear","list":[["1700000000000","100","102","99","101","10","1000"]]}`))
	}))
	defer srv.Close()

	c := newServerClient(srv.URL)
	klines, err := c.GetKlines(context.Background(), "BTCUSDT", "15m", 200)

	require.NoError(t, err)
	require.Len(t, klines, 1)
	assert.Equal(t, 101.0, klines[0].Close)
	assert.Equal(t, 2, requests)
}

func TestGetPosition_AuthFailureIsNotRetried(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, apiResponse(ErrCodeInvalidAPIKey, "invalid api key", "{}"))
	}))
	defer srv.Close()

	c := newServerClient(srv.URL)
	_, err := c.GetPosition(context.Background(), "BTCUSDT", "long")

	require.Error(t, err)
	assert.Equal(t, 1, requests)
}
