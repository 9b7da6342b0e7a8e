package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Olisehgenesis/lait/internal/audit"
)

type stubGate struct{ configurers map[string]bool }

func (g *stubGate) CanConfigure(ctx context.Context, caller string) bool {
	return g.configurers[caller]
}

type captureAuditor struct{ events []*audit.Event }

func (a *captureAuditor) Record(ctx context.Context, e *audit.Event) {
	a.events = append(a.events, e)
}

func newTestService() (*Service, *captureAuditor) {
	gate := &stubGate{configurers: map[string]bool{"acct_admin": true}}
	auditor := &captureAuditor{}
	svc := NewService(NewMemoryStore(), gate, auditor, Defaults{
		DailyFiatLimit: 5000,
		RefundWindow:   2 * time.Hour,
		ExpiryGrace:    24 * time.Hour,
		Treasury:       "acct_treasury",
	})
	return svc, auditor
}

func TestService_DefaultsWhenUnset(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if got := svc.DailyFiatLimit(ctx); got != 5000 {
		t.Fatalf("DailyFiatLimit = %d, want 5000", got)
	}
	if got := svc.RefundWindow(ctx); got != 2*time.Hour {
		t.Fatalf("RefundWindow = %s, want 2h", got)
	}
	if got := svc.Treasury(ctx); got != "acct_treasury" {
		t.Fatalf("Treasury = %s", got)
	}
	if svc.Paused(ctx) {
		t.Fatal("should not be paused by default")
	}
	min, max := svc.OrderBounds(ctx, "usdx")
	if min != 0 || max != 0 {
		t.Fatalf("unconfigured bounds = (%d, %d), want (0, 0)", min, max)
	}
}

func TestService_SetOverrides(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.Set(ctx, "acct_admin", "daily_fiat_limit", "100"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := svc.Set(ctx, "acct_admin", "refund_window", "45m"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := svc.Set(ctx, "acct_admin", "min_order_size:usdx", "10"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := svc.Set(ctx, "acct_admin", "max_order_size:usdx", "900"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if got := svc.DailyFiatLimit(ctx); got != 100 {
		t.Fatalf("DailyFiatLimit = %d, want 100", got)
	}
	if got := svc.RefundWindow(ctx); got != 45*time.Minute {
		t.Fatalf("RefundWindow = %s, want 45m", got)
	}
	min, max := svc.OrderBounds(ctx, "USDX")
	if min != 10 || max != 900 {
		t.Fatalf("bounds = (%d, %d), want (10, 900)", min, max)
	}
}

func TestService_SetRequiresConfigureCapability(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Set(context.Background(), "acct_user", "daily_fiat_limit", "1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestService_SetValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := map[string]string{
		"daily_fiat_limit":    "abc",
		"refund_window":       "-5m",
		"paused":              "maybe",
		"treasury_address":    "  ",
		"min_order_size:usdx": "-1",
	}
	for key, value := range cases {
		if err := svc.Set(ctx, "acct_admin", key, value); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("Set(%s=%s): expected ErrInvalidValue, got %v", key, value, err)
		}
	}
}

func TestService_PauseToggleAudited(t *testing.T) {
	svc, auditor := newTestService()
	ctx := context.Background()

	if err := svc.SetPaused(ctx, "acct_admin", true); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}
	if !svc.Paused(ctx) {
		t.Fatal("expected paused")
	}
	if err := svc.SetPaused(ctx, "acct_admin", false); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}
	if svc.Paused(ctx) {
		t.Fatal("expected unpaused")
	}

	if len(auditor.events) != 2 || auditor.events[0].Kind != audit.KindPauseChanged {
		t.Fatalf("expected pause_changed audit events, got %+v", auditor.events)
	}
}
