package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/OldHunter0/Trend-Autostop/internal/exchange"
)

// GetPosition returns the open position for symbol matching the requested
// side ("long" or "short"), or nil when the position does not exist or has
// zero size.
func (c *Client) GetPosition(ctx context.Context, symbol, side string) (*exchange.Position, error) {
	params := map[string]interface{}{
		"category": categoryLinear,
		"symbol":   symbol,
	}

	var positions []exchange.Position
	err := c.RetryWithConfig(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
		if err != nil {
			return WrapAPIError("position request failed", err)
		}
		parsed, err := c.parsePositionsResponse(result)
		if err != nil {
			return err
		}
		positions = parsed
		return nil
	}, c.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	for i := range positions {
		p := &positions[i]
		if p.Side == side && p.Size > 0 {
			return p, nil
		}
	}
	return nil, nil
}

// SetStopLoss replaces the stop order attached to the position via the
// trading-stop endpoint. An unchanged-stop rejection is treated as success.
func (c *Client) SetStopLoss(ctx context.Context, pos *exchange.Position, stopPrice float64) error {
	params := map[string]interface{}{
		"category":    categoryLinear,
		"symbol":      pos.Symbol,
		"positionIdx": pos.PositionIdx,
		"stopLoss":    strconv.FormatFloat(stopPrice, 'f', -1, 64),
	}

	err := c.RetryWithConfig(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionTradingStop(ctx)
		if err != nil {
			return WrapAPIError("trading stop request failed", err)
		}
		if err := checkTradingStopResponse(result); err != nil {
			if IsStopNotModifiedError(err) {
				// The order already sits at the requested level.
				return nil
			}
			return err
		}
		return nil
	}, c.retryCfg)

	if err != nil {
		return fmt.Errorf("failed to set trading stop: %w", err)
	}
	return nil
}

// checkTradingStopResponse validates the API-level outcome of a trading-stop
// call. Bybit reports rejections as HTTP 200 with a non-zero retCode, so the
// response body must be inspected; a nil transport error proves nothing.
func checkTradingStopResponse(response interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return &BybitError{Code: serverResp.RetCode, Message: serverResp.RetMsg}
	}
	return nil
}

// parsePositionsResponse parses the positions API response
func (c *Client) parsePositionsResponse(response interface{}) ([]exchange.Position, error) {
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

	var positionResult struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			EntryPrice    string `json:"entryPrice"`
			MarkPrice     string `json:"markPrice"`
			LiqPrice      string `json:"liqPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			Leverage      string `json:"leverage"`
			StopLoss      string `json:"stopLoss"`
			PositionIdx   int    `json:"positionIdx"`
		} `json:"list"`
		Category string `json:"category"`
	}

	if err := json.Unmarshal(resultBytes, &positionResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position result: %w", err)
	}

	var positions []exchange.Position
	for _, posData := range positionResult.List {
		positions = append(positions, exchange.Position{
			Symbol:        posData.Symbol,
			Side:          sideFromBybit(posData.Side),
			Size:          parseFloat64(posData.Size),
			EntryPrice:    parseFloat64(posData.EntryPrice),
			MarkPrice:     parseFloat64(posData.MarkPrice),
			LiqPrice:      parseFloat64(posData.LiqPrice),
			UnrealizedPnL: parseFloat64(posData.UnrealisedPnl),
			Leverage:      parseFloat64(posData.Leverage),
			StopLoss:      parseFloat64(posData.StopLoss),
			PositionIdx:   posData.PositionIdx,
		})
	}

	return positions, nil
}

// sideFromBybit maps Bybit's Buy/Sell position side to long/short.
func sideFromBybit(side string) string {
	if side == "Sell" {
		return "short"
	}
	return "long"
}
