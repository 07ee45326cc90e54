package systemd

import (
	"context"
	"testing"
	"time"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	sent, err := Ready()
	if err != nil || sent {
		t.Fatalf("Ready() = %v, %v; want false, nil", sent, err)
	}
	if sent, err := Stopping(); err != nil || sent {
		t.Fatalf("Stopping() = %v, %v; want false, nil", sent, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := Watchdog(ctx); err != nil {
		t.Fatalf("Watchdog: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("Watchdog should return at once when disabled")
	}
}
