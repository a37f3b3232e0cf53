// Package notification delivers trading alerts to external channels
// (Telegram, webhooks) for pair lifecycle events.
package notification

import (
	"context"
	"fmt"
	"log"

	"statarb-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Pair carries the
// "SYMA-SYMB" key of the pair the alert concerns, so channel-side
// filters can route on it without parsing the title.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Pair    string     `json:"pair,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (useful for
// development and as the fallback when no channel is configured).
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Fanout delivers each alert to every backend, logging failures rather
// than propagating them. A broken channel must not stall the engine.
type Fanout struct {
	backends []Notifier
}

func NewFanout(backends ...Notifier) *Fanout {
	return &Fanout{backends: backends}
}

func (f *Fanout) Send(ctx context.Context, alert Alert) error {
	for _, b := range f.backends {
		if err := b.Send(ctx, alert); err != nil {
			log.Printf("[notify] delivery failed: %v", err)
		}
	}
	return nil
}

// TradeClosed builds the alert for a booked round trip.
func TradeClosed(trade model.CompleteTrade) Alert {
	level := AlertInfo
	if trade.ROI < 0 {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Pair:  fmt.Sprintf("%s-%s", trade.SymbolA, trade.SymbolB),
		Title: fmt.Sprintf("%s-%s closed", trade.SymbolA, trade.SymbolB),
		Message: fmt.Sprintf("%s roi %.2f%%: %s",
			trade.Direction, trade.ROI, trade.CloseReason),
	}
}

// PairBlocked builds the alert for an availability block.
func PairBlocked(pair, reason string) Alert {
	return Alert{
		Level:   AlertCritical,
		Pair:    pair,
		Title:   fmt.Sprintf("%s blocked", pair),
		Message: reason,
	}
}
