package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"statarb-systemv1/internal/model"
)

func TestTradeClosedAlert(t *testing.T) {
	win := TradeClosed(model.CompleteTrade{
		SymbolA: "ETHUSDT", SymbolB: "BTCUSDT",
		Direction: model.DirectionSellBuy, ROI: 1.25, CloseReason: "reverted",
	})
	if win.Level != AlertInfo {
		t.Fatalf("level = %v, want info for a winning trade", win.Level)
	}
	if win.Pair != "ETHUSDT-BTCUSDT" {
		t.Fatalf("pair = %q", win.Pair)
	}
	if !strings.Contains(win.Message, "1.25") {
		t.Fatalf("message = %q, want roi included", win.Message)
	}

	loss := TradeClosed(model.CompleteTrade{
		SymbolA: "ETHUSDT", SymbolB: "BTCUSDT", ROI: -0.4,
	})
	if loss.Level != AlertWarning {
		t.Fatalf("level = %v, want warning for a losing trade", loss.Level)
	}
}

func TestPairBlockedAlert(t *testing.T) {
	a := PairBlocked("ETHUSDT-BTCUSDT", "3 consecutive losses")
	if a.Level != AlertCritical {
		t.Fatalf("level = %v, want critical", a.Level)
	}
	if a.Pair != "ETHUSDT-BTCUSDT" {
		t.Fatalf("pair = %q", a.Pair)
	}
}

func TestWebhookPayloadCarriesPair(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), PairBlocked("ETHUSDT-BTCUSDT", "rolling drawdown"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Source != "statarb-engine" {
		t.Fatalf("source = %q", got.Source)
	}
	if got.Pair != "ETHUSDT-BTCUSDT" {
		t.Fatalf("pair = %q", got.Pair)
	}
	if got.Level != string(AlertCritical) {
		t.Fatalf("level = %q", got.Level)
	}
	if got.SentAt == "" {
		t.Fatal("sent_at missing")
	}
}

func TestWebhookRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertInfo}); err == nil {
		t.Fatal("expected an error on 502")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(ctx context.Context, alert Alert) error {
	f.calls++
	return errors.New("down")
}

func TestFanoutSurvivesFailingBackend(t *testing.T) {
	first := &failingNotifier{}
	second := &failingNotifier{}
	f := NewFanout(first, second)

	if err := f.Send(context.Background(), Alert{Level: AlertInfo}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("calls = %d/%d, want every backend attempted", first.calls, second.calls)
	}
}
