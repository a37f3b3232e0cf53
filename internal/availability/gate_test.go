package availability

import (
	"strings"
	"testing"
	"time"
)

// testClock is a manually advanced millisecond clock.
type testClock struct {
	ms int64
}

func (c *testClock) now() int64 { return c.ms }

func (c *testClock) advance(d time.Duration) { c.ms += d.Milliseconds() }

func newTestGate() (*Gate, *testClock) {
	clock := &testClock{ms: 1_700_000_000_000}
	gate := New(Config{}, clock.now)
	gate.Initialize("BTCUSDT-ETHUSDT")
	return gate, clock
}

func TestGateUnknownPairUnavailable(t *testing.T) {
	gate, _ := newTestGate()
	if gate.IsAvailable("SOLUSDT-AVAXUSDT") {
		t.Fatal("unregistered pair must be unavailable")
	}
}

func TestGateSingleLossBlocks(t *testing.T) {
	gate, _ := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -1.5)
	if gate.IsAvailable(pair) {
		t.Fatal("expected block after a 1.5% single loss")
	}
	reason, blocked := gate.BlockReason(pair)
	if !blocked || !strings.Contains(reason, "single trade loss") {
		t.Fatalf("reason = %q blocked=%v", reason, blocked)
	}
}

func TestGateSingleLossAtThresholdDoesNotBlock(t *testing.T) {
	gate, _ := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -1.0)
	if !gate.IsAvailable(pair) {
		t.Fatal("a loss exactly at the limit must not block")
	}
}

func TestGateWindowLossBlocks(t *testing.T) {
	gate, clock := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	// Three small losses inside the window sum past -0.5%.
	gate.RecordOutcome(pair, -0.2)
	clock.advance(time.Minute)
	gate.RecordOutcome(pair, 0.1)
	clock.advance(time.Minute)
	gate.RecordOutcome(pair, -0.45)
	if gate.IsAvailable(pair) {
		t.Fatal("expected block after cumulative window loss")
	}
	reason, _ := gate.BlockReason(pair)
	if !strings.Contains(reason, "cumulative") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestGateWindowLossPrunesOldTrades(t *testing.T) {
	gate, clock := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -0.4)
	// The first loss falls out of the rolling hour before the second.
	clock.advance(61 * time.Minute)
	gate.RecordOutcome(pair, -0.3)
	if !gate.IsAvailable(pair) {
		t.Fatal("old losses outside the window must not count")
	}
}

func TestGateConsecutiveLossesBlock(t *testing.T) {
	gate, clock := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -0.1)
	clock.advance(time.Minute)
	gate.RecordOutcome(pair, -0.1)
	clock.advance(time.Minute)
	if !gate.IsAvailable(pair) {
		t.Fatal("two small losses must not block yet")
	}
	gate.RecordOutcome(pair, -0.1)
	if gate.IsAvailable(pair) {
		t.Fatal("expected block after three consecutive losses")
	}
	reason, _ := gate.BlockReason(pair)
	if !strings.Contains(reason, "consecutive") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestGateWinResetsConsecutiveCount(t *testing.T) {
	gate, clock := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -0.1)
	clock.advance(time.Minute)
	gate.RecordOutcome(pair, -0.1)
	clock.advance(time.Minute)
	gate.RecordOutcome(pair, 0.2)
	clock.advance(time.Minute)
	gate.RecordOutcome(pair, -0.1)
	if !gate.IsAvailable(pair) {
		t.Fatal("a win between losses must break the streak")
	}
}

func TestGateBlockExpires(t *testing.T) {
	gate, clock := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -2.0)
	if gate.IsAvailable(pair) {
		t.Fatal("expected block")
	}

	clock.advance(59 * time.Minute)
	if gate.IsAvailable(pair) {
		t.Fatal("block must hold for the full duration")
	}

	clock.advance(2 * time.Minute)
	if !gate.IsAvailable(pair) {
		t.Fatal("block must expire after the cooldown")
	}
	if _, blocked := gate.BlockReason(pair); blocked {
		t.Fatal("expired block must clear its reason")
	}
}

func TestGateForceBlock(t *testing.T) {
	gate, clock := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.ForceBlock(pair, "stop loss triggered")
	if gate.IsAvailable(pair) {
		t.Fatal("expected force block")
	}
	reason, blocked := gate.BlockReason(pair)
	if !blocked || reason != "stop loss triggered" {
		t.Fatalf("reason = %q blocked=%v", reason, blocked)
	}

	clock.advance(61 * time.Minute)
	if !gate.IsAvailable(pair) {
		t.Fatal("force block must also expire")
	}
}

func TestGateInitializeResetsState(t *testing.T) {
	gate, _ := newTestGate()
	pair := "BTCUSDT-ETHUSDT"

	gate.RecordOutcome(pair, -2.0)
	if gate.IsAvailable(pair) {
		t.Fatal("expected block")
	}
	gate.Initialize(pair)
	if !gate.IsAvailable(pair) {
		t.Fatal("re-initializing must clear the block and history")
	}
}
