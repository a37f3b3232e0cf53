package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"statarb-systemv1/internal/model"
)

const defaultBaseURL = "https://api.binance.com"

// Client is a thin Binance spot REST client covering the endpoints the
// engine needs: klines, aggregated trades and spot prices. It satisfies
// model.DataProvider, model.TradeProvider and model.RateSource.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchCandles returns up to limit klines, ascending by open time.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	var raw [][]json.RawMessage
	if err := c.get(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, fmt.Errorf("klines %s/%s: %w", symbol, timeframe, err)
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			return nil, fmt.Errorf("klines %s: short row (%d fields)", symbol, len(k))
		}
		candle, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("klines %s: %w", symbol, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// parseKline reads Binance's [openTime, open, high, low, close, volume,
// closeTime, ...] row. Prices come as JSON strings.
func parseKline(k []json.RawMessage) (model.Candle, error) {
	var candle model.Candle
	if err := json.Unmarshal(k[0], &candle.OpenTime); err != nil {
		return candle, err
	}
	if err := json.Unmarshal(k[6], &candle.CloseTime); err != nil {
		return candle, err
	}
	for i, dst := range []*float64{nil, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume} {
		if dst == nil {
			continue
		}
		v, err := stringFloat(k[i])
		if err != nil {
			return candle, err
		}
		*dst = v
	}
	return candle, nil
}

type aggTrade struct {
	ID           int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	FirstTradeID int64  `json:"f"`
	LastTradeID  int64  `json:"l"`
	Timestamp    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// FetchTrades returns up to limit aggregated trades, ascending by
// timestamp. Pagination: pass q.FromID to continue after a previous
// batch, or q.StartTime/q.EndTime to anchor the first page.
func (c *Client) FetchTrades(ctx context.Context, symbol string, limit int, query model.TradeQuery) ([]model.Tick, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(limit))
	if query.FromID > 0 {
		q.Set("fromId", strconv.FormatInt(query.FromID, 10))
	} else {
		if query.StartTime > 0 {
			q.Set("startTime", strconv.FormatInt(query.StartTime, 10))
		}
		if query.EndTime > 0 {
			q.Set("endTime", strconv.FormatInt(query.EndTime, 10))
		}
	}

	var raw []aggTrade
	if err := c.get(ctx, "/api/v3/aggTrades", q, &raw); err != nil {
		return nil, fmt.Errorf("aggTrades %s: %w", symbol, err)
	}

	ticks := make([]model.Tick, 0, len(raw))
	for _, t := range raw {
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("aggTrades %s: parse price %q: %w", symbol, t.Price, err)
		}
		qty, err := strconv.ParseFloat(t.Quantity, 64)
		if err != nil {
			return nil, fmt.Errorf("aggTrades %s: parse quantity %q: %w", symbol, t.Quantity, err)
		}
		ticks = append(ticks, model.Tick{
			Symbol:       symbol,
			TradeID:      t.ID,
			Price:        price,
			Quantity:     qty,
			Timestamp:    t.Timestamp,
			IsBuyerMaker: t.IsBuyerMaker,
			FirstTradeID: t.FirstTradeID,
			LastTradeID:  t.LastTradeID,
		})
	}
	return ticks, nil
}

// AssetPrices returns the current spot price of every symbol on the
// exchange, keyed by symbol. The at parameter is ignored: the REST API
// only serves the present.
func (c *Client) AssetPrices(ctx context.Context, at int64) (map[string]float64, error) {
	var raw []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.get(ctx, "/api/v3/ticker/price", nil, &raw); err != nil {
		return nil, fmt.Errorf("ticker prices: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for _, p := range raw {
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("ticker prices: parse %s=%q: %w", p.Symbol, p.Price, err)
		}
		prices[p.Symbol] = v
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func stringFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}
