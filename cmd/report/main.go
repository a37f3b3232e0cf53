package main

import (
	"context"
	"log"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"statarb-systemv1/config"
	"statarb-systemv1/internal/logger"
	"statarb-systemv1/internal/marketdata"
	"statarb-systemv1/internal/report"
	redisstore "statarb-systemv1/internal/store/redis"
)

// report scores the configured pairs for tradability and caches the
// results in Redis.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[report] starting...")

	cfg := config.Load()
	slog := logger.Init("report", logger.ParseLevel(cfg.LogLevel))

	pairs := cfg.ParsePairs()
	if len(pairs) == 0 {
		log.Fatal("[report] no valid pairs configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, err := redisstore.NewCache(redisstore.CacheConfig{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		ReportTTL: 24 * time.Hour,
	})
	if err != nil {
		log.Fatalf("[report] connect redis: %v", err)
	}
	defer cache.Close()

	client := marketdata.NewClient(cfg.BinanceRESTURL)
	builder := report.NewBuilder(client, nil, 500)

	reports := make([]*report.PairReport, 0, len(pairs))
	for _, pair := range pairs {
		key := pair.Symbol()

		var cached report.PairReport
		hit, err := cache.GetReport(ctx, key, &cached)
		if err != nil {
			log.Printf("[report] cache read %s: %v", key, err)
		}
		if hit {
			slog.Info("using cached report", "pair", key, "score", cached.Score)
			reports = append(reports, &cached)
			continue
		}

		r, err := builder.Build(ctx, pair)
		if err != nil {
			log.Printf("[report] build %s: %v", key, err)
			continue
		}
		if err := cache.SetReport(ctx, key, r); err != nil {
			log.Printf("[report] cache write %s: %v", key, err)
		}
		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Score > reports[j].Score
	})
	for i, r := range reports {
		slog.Info("pair ranked",
			"rank", i+1,
			"pair", r.Pair,
			"score", r.Score,
			"p_value", r.Cointegration.PValue,
			"half_life", r.HalfLife,
			"corr_prices", r.OverallPrices,
			"corr_returns", r.OverallReturns,
			"spread_crossings", r.Spread.MeanCrossings,
		)
	}
	log.Println("[report] done")
}
