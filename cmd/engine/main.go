package main

import (
	"context"
	"log"
	"math"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"statarb-systemv1/config"
	"statarb-systemv1/internal/api"
	"statarb-systemv1/internal/availability"
	"statarb-systemv1/internal/logger"
	"statarb-systemv1/internal/marketdata"
	"statarb-systemv1/internal/metrics"
	"statarb-systemv1/internal/model"
	"statarb-systemv1/internal/notification"
	"statarb-systemv1/internal/portfolio"
	"statarb-systemv1/internal/roi"
	redisstore "statarb-systemv1/internal/store/redis"
	sqlitestore "statarb-systemv1/internal/store/sqlite"
	"statarb-systemv1/internal/strategy"
)

// engine runs the strategies against the live trade stream in paper
// mode: signals are accepted at their reference prices and booked to
// SQLite the same way a backtest run is.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[engine] starting...")

	cfg := config.Load()
	slog := logger.Init("engine", logger.ParseLevel(cfg.LogLevel))

	pairs := cfg.ParsePairs()
	if len(pairs) == 0 {
		log.Fatal("[engine] no valid pairs configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[engine] open store: %v", err)
	}
	defer store.Close()

	cache, err := redisstore.NewCache(redisstore.CacheConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[engine] connect redis: %v", err)
	}
	defer cache.Close()

	client := marketdata.NewClient(cfg.BinanceRESTURL)

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 30*time.Second)
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Stop(shutdownCtx)
		cancel()
	}()

	nowMS := func() int64 { return time.Now().UnixMilli() }
	gate := availability.New(availability.Config{
		MaxSingleLossPercent: cfg.MaxSingleLossPercent,
		MaxWindowLossPercent: cfg.MaxWindowLossPercent,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		LossWindow:           cfg.LossWindow,
		BlockDuration:        cfg.BlockDuration,
	}, nowMS)

	stratCfg := strategy.Config{
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
	}

	prices, err := client.AssetPrices(ctx, 0)
	if err != nil {
		log.Fatalf("[engine] load rates: %v", err)
	}
	if err := cache.SetAssetPrices(ctx, prices); err != nil {
		log.Printf("[engine] cache rates: %v", err)
	}

	// one strategy per pair, keyed by pair symbol
	strategies := make(map[string]*strategy.Strategy, len(pairs))
	pairByKey := make(map[string]model.Pair, len(pairs))
	symbolSet := make(map[string]bool)
	for _, pair := range pairs {
		key := pair.Symbol()
		strat := strategy.New(stratCfg, client)
		if err := strat.Start(ctx, pair.AssetA, pair.AssetB); err != nil {
			log.Printf("[engine] skipping %s: %v", key, err)
			continue
		}
		strat.SetAssetPrices(prices)
		gate.Initialize(key)
		strategies[key] = strat
		pairByKey[key] = pair
		symbolSet[pair.AssetA.Symbol()] = true
		symbolSet[pair.AssetB.Symbol()] = true
	}
	if len(strategies) == 0 {
		log.Fatal("[engine] no pair could be started")
	}
	defer func() {
		for _, strat := range strategies {
			strat.Stop()
		}
	}()

	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}

	notify := buildNotifier(cfg)
	ledger := portfolio.New()

	apiSrv := &http.Server{
		Addr: cfg.APIAddr,
		Handler: api.NewRouter(ledger, func() map[string]string {
			states := make(map[string]string, len(strategies))
			for key, strat := range strategies {
				states[key] = string(strat.State())
			}
			return states
		}),
	}
	go func() {
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[engine] api server: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		apiSrv.Shutdown(shutdownCtx)
		cancel()
	}()

	tickCh := make(chan model.Tick, 10000)
	stream := marketdata.NewStream(cfg.BinanceStreamURL, symbols)
	stream.OnReconnect = func() {
		m.StreamReconnects.Inc()
		health.SetStreamConnected(false)
	}
	go func() {
		health.SetStreamConnected(true)
		if err := stream.Run(ctx, tickCh); err != nil && ctx.Err() == nil {
			log.Printf("[engine] stream stopped: %v", err)
		}
	}()

	rateTicker := time.NewTicker(time.Hour)
	defer rateTicker.Stop()

	slog.Info("engine running", "pairs", len(strategies), "symbols", symbols)

	for {
		select {
		case <-ctx.Done():
			log.Println("[engine] shutting down")
			return

		case <-rateTicker.C:
			fresh, err := client.AssetPrices(ctx, 0)
			if err != nil {
				log.Printf("[engine] refresh rates: %v", err)
				continue
			}
			prices = fresh
			for _, strat := range strategies {
				strat.SetAssetPrices(prices)
			}
			if err := cache.SetAssetPrices(ctx, prices); err != nil {
				log.Printf("[engine] cache rates: %v", err)
			}

		case tick := <-tickCh:
			health.SetLastTickTime(time.UnixMilli(tick.Timestamp))
			m.TicksReplayed.Inc()
			for key, strat := range strategies {
				sig := strat.OnTick(tick)
				if sig == nil {
					continue
				}
				handleSignal(ctx, execContext{
					key:     key,
					pair:    pairByKey[key],
					strat:   strat,
					sig:     sig,
					gate:    gate,
					cache:   cache,
					store:   store,
					metrics: m,
					prices:  prices,
					cfg:     cfg,
					ledger:  ledger,
					notify:  notify,
				})
			}
		}
	}
}

type execContext struct {
	key     string
	pair    model.Pair
	strat   *strategy.Strategy
	sig     *model.Signal
	gate    *availability.Gate
	cache   *redisstore.Cache
	store   *sqlitestore.Store
	metrics *metrics.Metrics
	prices  map[string]float64
	cfg     *config.Config
	ledger  *portfolio.Ledger
	notify  notification.Notifier
}

// buildNotifier assembles the alert fanout from whichever channels are
// configured, falling back to log-only delivery.
func buildNotifier(cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if len(backends) == 0 {
		return notification.NewLogNotifier()
	}
	return notification.NewFanout(backends...)
}

func handleSignal(ctx context.Context, a execContext) {
	switch a.sig.Type {
	case model.SignalOpen:
		if !a.gate.IsAvailable(a.key) || a.sig.Beta == 0 {
			a.strat.PositionEnterRejected()
			a.metrics.SignalsRejected.WithLabelValues(string(a.sig.Type)).Inc()
			return
		}
		pos := model.Position{
			Direction:  a.sig.Direction,
			QuantityA:  a.cfg.BaseQuantity,
			QuantityB:  a.cfg.BaseQuantity / math.Abs(a.sig.Beta),
			OpenPriceA: a.sig.LegA.Price,
			OpenPriceB: a.sig.LegB.Price,
			OpenTime:   time.Now().UnixMilli(),
		}
		a.ledger.PositionOpened(a.key, pos)
		a.strat.PositionEnterAccepted(pos)
		a.metrics.SignalsEmitted.WithLabelValues(string(a.sig.Type)).Inc()
		log.Printf("[engine] opened %s %s: %s", a.key, a.sig.Direction, a.sig.Reason)

	case model.SignalClose, model.SignalStopLoss:
		pos, ok := a.ledger.Position(a.key)
		if !ok {
			a.strat.PositionExitRejected()
			return
		}
		tradeROI, err := roi.Calculate(roi.Trade{
			Direction:   pos.Direction,
			AssetA:      a.pair.AssetA,
			AssetB:      a.pair.AssetB,
			QuantityA:   pos.QuantityA,
			QuantityB:   pos.QuantityB,
			OpenPriceA:  pos.OpenPriceA,
			OpenPriceB:  pos.OpenPriceB,
			ClosePriceA: a.sig.LegA.Price,
			ClosePriceB: a.sig.LegB.Price,
		}, a.prices, a.cfg.CommissionRate)
		if err != nil {
			log.Printf("[engine] cannot value close for %s: %v", a.key, err)
			a.strat.PositionExitRejected()
			return
		}
		trade := model.CompleteTrade{
			Direction:   pos.Direction,
			SymbolA:     a.pair.AssetA.Symbol(),
			SymbolB:     a.pair.AssetB.Symbol(),
			QuantityA:   pos.QuantityA,
			QuantityB:   pos.QuantityB,
			OpenPriceA:  pos.OpenPriceA,
			ClosePriceA: a.sig.LegA.Price,
			OpenPriceB:  pos.OpenPriceB,
			ClosePriceB: a.sig.LegB.Price,
			OpenTime:    pos.OpenTime,
			CloseTime:   time.Now().UnixMilli(),
			ROI:         tradeROI,
			CloseReason: a.sig.Reason,
		}
		if err := a.store.SaveCompletedTrades(a.key, []model.CompleteTrade{trade}); err != nil {
			log.Printf("[engine] save trade %s: %v", a.key, err)
		}
		a.ledger.PositionClosed(a.key, trade)
		a.strat.PositionExitAccepted()
		a.gate.RecordOutcome(a.key, tradeROI)
		go a.notify.Send(ctx, notification.TradeClosed(trade))
		if a.sig.Type == model.SignalStopLoss {
			a.gate.ForceBlock(a.key, a.sig.Reason)
			a.metrics.PairsBlocked.Inc()
			go a.notify.Send(ctx, notification.PairBlocked(a.key, a.sig.Reason))
		}
		a.metrics.TradesCompleted.Inc()
		if err := a.cache.PublishSignal(ctx, a.key, a.sig); err != nil {
			log.Printf("[engine] publish signal %s: %v", a.key, err)
		}
		log.Printf("[engine] closed %s roi=%.2f%%: %s", a.key, tradeROI, a.sig.Reason)
	}
}
