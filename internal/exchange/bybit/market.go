package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/OldHunter0/Trend-Autostop/pkg/types"
)

// category for USDT perpetuals; the monitor only manages linear contracts.
const categoryLinear = "linear"

// intervalCodes maps monitor timeframes to Bybit kline interval codes.
var intervalCodes = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"4h":  "240",
	"1d":  "D",
}

// GetKlines fetches candles for the symbol and timeframe, sorted by ascending
// start time. The newest (usually still open) candle comes last.
func (c *Client) GetKlines(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error) {
	code, ok := intervalCodes[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported kline timeframe: %q", timeframe)
	}

	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": categoryLinear,
		"symbol":   symbol,
		"interval": code,
		"limit":    limit,
	}

	var klines []types.OHLCV
	err := c.RetryWithConfig(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
		if err != nil {
			return WrapAPIError("kline request failed", err)
		}
		parsed, err := c.parseKlineResponse(result)
		if err != nil {
			return err
		}
		klines = parsed
		return nil
	}, c.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	// Bybit returns newest first; the calculation pipeline wants strictly
	// ascending timestamps.
	sort.Slice(klines, func(i, j int) bool {
		return klines[i].Timestamp.Before(klines[j].Timestamp)
	})

	return klines, nil
}

// GetLatestPrice gets the latest traded price for a symbol
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": categoryLinear,
		"symbol":   symbol,
	}

	var price float64
	err := c.RetryWithConfig(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return WrapAPIError("ticker request failed", err)
		}
		parsed, err := c.parseLatestPriceResponse(result)
		if err != nil {
			return err
		}
		price = parsed
		return nil
	}, c.retryCfg)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest price: %w", err)
	}

	return price, nil
}

// parseKlineResponse parses the API response into OHLCV structs
func (c *Client) parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}

	if serverResp.RetCode != 0 {
		return nil, &BybitError{Code: serverResp.RetCode, Message: serverResp.RetMsg}
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}

	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	var klines []types.OHLCV
	for _, item := range klineResult.List {
		if len(item) < 7 {
			continue // Skip incomplete data
		}

		// Bybit kline format: [startTime, open, high, low, close, volume, turnover]
		klines = append(klines, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	return klines, nil
}

// parseLatestPriceResponse parses the ticker response to extract the latest price
func (c *Client) parseLatestPriceResponse(response interface{}) (float64, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return 0, fmt.Errorf("invalid response type")
	}

	if serverResp.RetCode != 0 {
		return 0, &BybitError{Code: serverResp.RetCode, Message: serverResp.RetMsg}
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}

	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}

	if len(tickerResult.List) == 0 {
		return 0, fmt.Errorf("no ticker data found")
	}

	return parseFloat64(tickerResult.List[0].LastPrice), nil
}

func parseFloat64(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt64(s string) int64 {
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
