package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"statarb-systemv1/internal/model"
)

const defaultStreamURL = "wss://stream.binance.com:9443"

// Stream subscribes to Binance aggregated trade streams and pushes
// normalized ticks into a channel. Disconnects are retried with capped
// exponential backoff until the context is cancelled.
type Stream struct {
	baseURL string
	symbols []string

	// OnReconnect fires before each reconnection attempt.
	OnReconnect func()
}

func NewStream(baseURL string, symbols []string) *Stream {
	if baseURL == "" {
		baseURL = defaultStreamURL
	}
	return &Stream{baseURL: baseURL, symbols: symbols}
}

type streamEnvelope struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol       string `json:"s"`
		ID           int64  `json:"a"`
		Price        string `json:"p"`
		Quantity     string `json:"q"`
		FirstTradeID int64  `json:"f"`
		LastTradeID  int64  `json:"l"`
		TradeTime    int64  `json:"T"`
		IsBuyerMaker bool   `json:"m"`
	} `json:"data"`
}

// Run connects and streams ticks into tickCh until ctx is cancelled.
// A full channel drops the tick rather than stalling the read loop.
func (s *Stream) Run(ctx context.Context, tickCh chan<- model.Tick) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("stream requires at least one symbol")
	}

	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@aggTrade"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.consume(ctx, url, tickCh)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[stream] disconnected: %v, retrying in %s", err, backoff)
		if s.OnReconnect != nil {
			s.OnReconnect()
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (s *Stream) consume(ctx context.Context, url string, tickCh chan<- model.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[stream] connected symbols=%v", s.symbols)

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("[stream] ping failed: %v", err)
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var env streamEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Printf("[stream] bad payload: %v", err)
			continue
		}
		price, err := strconv.ParseFloat(env.Data.Price, 64)
		if err != nil {
			log.Printf("[stream] bad price %q: %v", env.Data.Price, err)
			continue
		}
		qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
		if err != nil {
			log.Printf("[stream] bad quantity %q: %v", env.Data.Quantity, err)
			continue
		}

		tick := model.Tick{
			Symbol:       env.Data.Symbol,
			TradeID:      env.Data.ID,
			Price:        price,
			Quantity:     qty,
			Timestamp:    env.Data.TradeTime,
			IsBuyerMaker: env.Data.IsBuyerMaker,
			FirstTradeID: env.Data.FirstTradeID,
			LastTradeID:  env.Data.LastTradeID,
		}
		select {
		case tickCh <- tick:
		default:
			log.Printf("[stream] tick channel full, dropping %s@%d", tick.Symbol, tick.Timestamp)
		}
	}
}
