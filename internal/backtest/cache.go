package backtest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"statarb-systemv1/internal/model"
)

// tradeCache holds the full replay window of trades per symbol, fetched
// once up front so the hot loop never touches the provider.
type tradeCache struct {
	trades map[string][]model.Tick
}

// buildTradeCache pages through each symbol's trade history
// concurrently, following trade-id continuation until the provider
// returns a short batch or a trade past endMS.
func buildTradeCache(ctx context.Context, provider model.TradeProvider, symbols []string, startMS, endMS int64, batchSize int) (*tradeCache, error) {
	cache := &tradeCache{trades: make(map[string][]model.Tick, len(symbols))}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			trades, err := fetchSymbolTrades(ctx, provider, symbol, startMS, endMS, batchSize)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("fetch trades %s: %w", symbol, err)
				}
				return
			}
			cache.trades[symbol] = trades
		}(symbol)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return cache, nil
}

func fetchSymbolTrades(ctx context.Context, provider model.TradeProvider, symbol string, startMS, endMS int64, batchSize int) ([]model.Tick, error) {
	var out []model.Tick
	query := model.TradeQuery{StartTime: startMS, EndTime: endMS}
	for {
		batch, err := provider.FetchTrades(ctx, symbol, batchSize, query)
		if err != nil {
			return nil, err
		}
		for _, t := range batch {
			if t.Timestamp > endMS {
				return out, nil
			}
			out = append(out, t)
		}
		if len(batch) < batchSize {
			break
		}
		// continue from the trade after the last one seen
		query = model.TradeQuery{FromID: batch[len(batch)-1].TradeID + 1}
	}
	log.Printf("[backtest] cached %d trades for %s", len(out), symbol)
	return out, nil
}

func (c *tradeCache) forSymbol(symbol string) []model.Tick {
	return c.trades[symbol]
}
