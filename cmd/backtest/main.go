package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"statarb-systemv1/config"
	"statarb-systemv1/internal/availability"
	"statarb-systemv1/internal/backtest"
	"statarb-systemv1/internal/logger"
	"statarb-systemv1/internal/marketdata"
	"statarb-systemv1/internal/metrics"
	"statarb-systemv1/internal/model"
	"statarb-systemv1/internal/portfolio"
	sqlitestore "statarb-systemv1/internal/store/sqlite"
	"statarb-systemv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[backtest] starting...")

	cfg := config.Load()
	slog := logger.Init("backtest", logger.ParseLevel(cfg.LogLevel))

	pairs := cfg.ParsePairs()
	if len(pairs) == 0 {
		log.Fatal("[backtest] no valid pairs configured")
	}
	if cfg.BacktestStart == 0 || cfg.BacktestEnd == 0 {
		log.Fatal("[backtest] BACKTEST_START and BACKTEST_END (unix ms) are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[backtest] open store: %v", err)
	}
	defer store.Close()

	client := marketdata.NewClient(cfg.BinanceRESTURL)

	if strings.EqualFold(os.Getenv("BACKTEST_SYNC"), "true") {
		if err := syncHistory(ctx, cfg, pairs, client, store); err != nil {
			log.Fatalf("[backtest] sync history: %v", err)
		}
	}

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetStreamConnected(true) // replay has no live stream
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Stop(shutdownCtx)
		cancel()
	}()

	runner := backtest.NewRunner(backtest.Config{
		Pairs:        pairs,
		StartTime:    cfg.BacktestStart,
		EndTime:      cfg.BacktestEnd,
		BaseQuantity: cfg.BaseQuantity,
		Strategy: strategy.Config{
			Timeframe:      cfg.Timeframe,
			HistorySize:    cfg.HistorySize,
			BetaWindow:     cfg.BetaWindow,
			ZScoreWindow:   cfg.ZScoreWindow,
			ADXWindow:      cfg.ADXWindow,
			EntryZScore:    cfg.EntryZScore,
			ExitZScore:     cfg.ExitZScore,
			BlowOutZScore:  cfg.BlowOutZScore,
			CommissionRate: cfg.CommissionRate,
			StopLoss: strategy.StopLossConfig{
				VolatilityWindow: cfg.StopVolatilityWindow,
				MinSamples:       cfg.StopMinSamples,
				Multiplier:       cfg.StopMultiplier,
				DrawdownBuffer:   cfg.StopDrawdownBuffer,
				MinPercent:       cfg.StopMinPercent,
				MaxPercent:       cfg.StopMaxPercent,
			},
		},
		Availability: availability.Config{
			MaxSingleLossPercent: cfg.MaxSingleLossPercent,
			MaxWindowLossPercent: cfg.MaxWindowLossPercent,
			MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
			LossWindow:           cfg.LossWindow,
			BlockDuration:        cfg.BlockDuration,
		},
		CommissionRate: cfg.CommissionRate,
	}, store, store, store, m)

	results, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("[backtest] run: %v", err)
	}

	for _, res := range results {
		pairKey := res.Pair.Symbol()
		if err := store.SaveCompletedTrades(pairKey, res.Trades); err != nil {
			log.Printf("[backtest] save ledger %s: %v", pairKey, err)
		}
		led := portfolio.New()
		for _, trade := range res.Trades {
			led.PositionClosed(pairKey, trade)
		}
		summary := led.Summarize()
		slog.Info("pair finished",
			"pair", pairKey,
			"ticks", res.TicksReplayed,
			"trades", summary.TotalTrades,
			"wins", summary.Wins,
			"losses", summary.Losses,
			"total_roi_pct", summary.TotalROI,
			"max_drawdown_pct", summary.MaxDrawdown,
		)
	}
	log.Println("[backtest] done")
}

// syncHistory pulls candles, trades and a rate snapshot from the
// exchange into SQLite so the replay can run offline afterwards.
func syncHistory(ctx context.Context, cfg *config.Config, pairs []model.Pair, client *marketdata.Client, store *sqlitestore.Store) error {
	symbols := make(map[string]bool)
	for _, p := range pairs {
		symbols[p.AssetA.Symbol()] = true
		symbols[p.AssetB.Symbol()] = true
	}

	for symbol := range symbols {
		candles, err := client.FetchCandles(ctx, symbol, cfg.Timeframe, cfg.HistorySize)
		if err != nil {
			return err
		}
		if err := store.InsertCandles(symbol, cfg.Timeframe, candles); err != nil {
			return err
		}
		log.Printf("[backtest] synced %d candles for %s", len(candles), symbol)

		query := model.TradeQuery{StartTime: cfg.BacktestStart, EndTime: cfg.BacktestEnd}
		for {
			batch, err := client.FetchTrades(ctx, symbol, 1000, query)
			if err != nil {
				return err
			}
			if err := store.InsertTrades(symbol, batch); err != nil {
				return err
			}
			if len(batch) < 1000 || batch[len(batch)-1].Timestamp > cfg.BacktestEnd {
				break
			}
			query = model.TradeQuery{FromID: batch[len(batch)-1].TradeID + 1}
		}
		log.Printf("[backtest] synced trades for %s", symbol)
	}

	prices, err := client.AssetPrices(ctx, 0)
	if err != nil {
		return err
	}
	return store.InsertAssetPrices(cfg.BacktestStart, prices)
}
