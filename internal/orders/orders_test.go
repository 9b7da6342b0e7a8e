package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Olisehgenesis/lait/internal/assets"
	"github.com/Olisehgenesis/lait/internal/audit"
	"github.com/Olisehgenesis/lait/internal/bank"
	"github.com/Olisehgenesis/lait/internal/limits"
)

const (
	testAccount  = "acct_alice"
	testSeller   = "acct_bob"
	testAdmin    = "adm_carol"
	testTreasury = "treasury"
	testAsset    = "native"
)

type fakeGate struct {
	settlers map[string]bool
}

func (g *fakeGate) CanSettle(ctx context.Context, caller string) bool {
	return g.settlers[strings.ToLower(caller)]
}

type fakeStats struct {
	fills      int
	fiatVolume int64
}

func (s *fakeStats) RecordFill(ctx context.Context, address string, fiatAmount int64) error {
	s.fills++
	s.fiatVolume += fiatAmount
	return nil
}

type fakeAssets struct {
	supported map[string]bool
}

func (a *fakeAssets) Require(ctx context.Context, asset string) error {
	if !a.supported[asset] {
		return assets.ErrUnsupportedAsset
	}
	return nil
}

type fakeFees struct {
	bps int64
	min int64
}

func (f *fakeFees) Fee(ctx context.Context, asset string, amount int64, direction Direction) (int64, error) {
	if f.bps == 0 && f.min == 0 {
		return 0, nil
	}
	fee := amount * f.bps / 10000
	if fee < f.min {
		fee = f.min
	}
	return fee, nil
}

type fakePolicy struct {
	paused       bool
	refundWindow time.Duration
	expiryGrace  time.Duration
	minOrder     int64
	maxOrder     int64
}

func (p *fakePolicy) Paused(ctx context.Context) bool                  { return p.paused }
func (p *fakePolicy) RefundWindow(ctx context.Context) time.Duration   { return p.refundWindow }
func (p *fakePolicy) ExpiryGrace(ctx context.Context) time.Duration    { return p.expiryGrace }
func (p *fakePolicy) Treasury(ctx context.Context) string              { return testTreasury }
func (p *fakePolicy) OrderBounds(ctx context.Context, asset string) (int64, int64) {
	return p.minOrder, p.maxOrder
}

type fixedLimit struct {
	limit int64
}

func (f *fixedLimit) DailyFiatLimit(ctx context.Context) int64 { return f.limit }

type fixture struct {
	service *Service
	store   *MemoryStore
	bank    *bank.MemoryBank
	gate    *fakeGate
	stats   *fakeStats
	policy  *fakePolicy
	fees    *fakeFees
	now     time.Time
}

func newFixture(t *testing.T, dailyLimit int64) *fixture {
	t.Helper()

	f := &fixture{
		store:  NewMemoryStore(),
		bank:   bank.NewMemoryBank(),
		gate:   &fakeGate{settlers: map[string]bool{testAdmin: true}},
		stats:  &fakeStats{},
		policy: &fakePolicy{refundWindow: 2 * time.Hour, expiryGrace: 24 * time.Hour},
		fees:   &fakeFees{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(audit.NewMemoryStore(), logger)
	tracker := limits.NewTracker(limits.NewMemoryStore(), &fixedLimit{limit: dailyLimit})

	f.service = NewService(f.store, f.gate, f.stats,
		&fakeAssets{supported: map[string]bool{testAsset: true}},
		f.fees, tracker, f.bank, f.policy, recorder, 4096,
	).WithClock(func() time.Time { return f.now })

	// Funded and pre-authorized buyer and seller.
	f.bank.Credit(testAccount, testAsset, 10_000)
	f.bank.Approve(testAccount, testAsset, 10_000)
	f.bank.Credit(testSeller, testAsset, 10_000)
	f.bank.Approve(testSeller, testAsset, 10_000)
	return f
}

func (f *fixture) createBuy(t *testing.T, amount, fiat int64) *Order {
	t.Helper()
	order, err := f.service.Create(context.Background(), testAccount, CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: amount,
		FiatCurrency: "usd", FiatAmount: fiat,
	})
	if err != nil {
		t.Fatalf("Create BUY failed: %v", err)
	}
	return order
}

func (f *fixture) createSell(t *testing.T, amount, fiat int64) *Order {
	t.Helper()
	order, err := f.service.Create(context.Background(), testSeller, CreateRequest{
		Direction: "SELL", Asset: testAsset, Amount: amount,
		FiatCurrency: "usd", FiatAmount: fiat,
	})
	if err != nil {
		t.Fatalf("Create SELL failed: %v", err)
	}
	return order
}

func (f *fixture) escrow(t *testing.T, asset string) int64 {
	t.Helper()
	balances, err := f.service.EscrowBalances(context.Background())
	if err != nil {
		t.Fatalf("EscrowBalances failed: %v", err)
	}
	return balances[asset]
}

func TestCreateBuyLocksEscrow(t *testing.T) {
	f := newFixture(t, 0)
	order := f.createBuy(t, 500, 1000)

	if order.Status != StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if !strings.HasPrefix(order.ID, "ord_") {
		t.Errorf("unexpected order ID %q", order.ID)
	}
	if got := f.bank.BalanceOf(testAccount, testAsset); got != 9_500 {
		t.Errorf("buyer balance = %d, want 9500", got)
	}
	if got := f.bank.CustodyOf(testAsset); got != 500 {
		t.Errorf("custody = %d, want 500", got)
	}
	if got := f.escrow(t, testAsset); got != 500 {
		t.Errorf("escrow = %d, want 500", got)
	}
	if want := f.now.Add(2 * time.Hour); !order.MinRefundAt.Equal(want) {
		t.Errorf("minRefundAt = %v, want %v", order.MinRefundAt, want)
	}
	if want := f.now.Add(26 * time.Hour); !order.ExpireAt.Equal(want) {
		t.Errorf("expireAt = %v, want %v", order.ExpireAt, want)
	}
}

func TestCreateSellMovesNoValue(t *testing.T) {
	f := newFixture(t, 0)
	f.createSell(t, 500, 1000)

	if got := f.bank.BalanceOf(testSeller, testAsset); got != 10_000 {
		t.Errorf("seller balance = %d, want 10000", got)
	}
	if got := f.escrow(t, testAsset); got != 0 {
		t.Errorf("escrow = %d, want 0", got)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	cases := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{"zero amount", CreateRequest{Direction: "BUY", Asset: testAsset, Amount: 0, FiatCurrency: "USD", FiatAmount: 100}, ErrInvalidAmount},
		{"negative amount", CreateRequest{Direction: "BUY", Asset: testAsset, Amount: -5, FiatCurrency: "USD", FiatAmount: 100}, ErrInvalidAmount},
		{"zero fiat", CreateRequest{Direction: "BUY", Asset: testAsset, Amount: 100, FiatCurrency: "USD", FiatAmount: 0}, ErrInvalidAmount},
		{"bad direction", CreateRequest{Direction: "HOLD", Asset: testAsset, Amount: 100, FiatCurrency: "USD", FiatAmount: 100}, ErrInvalidAmount},
		{"unsupported asset", CreateRequest{Direction: "BUY", Asset: "doge", Amount: 100, FiatCurrency: "USD", FiatAmount: 100}, assets.ErrUnsupportedAsset},
		{"oversized metadata", CreateRequest{Direction: "BUY", Asset: testAsset, Amount: 100, FiatCurrency: "USD", FiatAmount: 100, Metadata: strings.Repeat("x", 5000)}, ErrMetadataTooBig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.Create(ctx, testAccount, tc.req); !errors.Is(err, tc.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateRespectsOrderBounds(t *testing.T) {
	f := newFixture(t, 0)
	f.policy.minOrder = 100
	f.policy.maxOrder = 1000
	ctx := context.Background()

	if _, err := f.service.Create(ctx, testAccount, CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: 50, FiatCurrency: "USD", FiatAmount: 100,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("below min: error = %v, want ErrInvalidAmount", err)
	}
	if _, err := f.service.Create(ctx, testAccount, CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: 1500, FiatCurrency: "USD", FiatAmount: 100,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("above max: error = %v, want ErrInvalidAmount", err)
	}
	f.createBuy(t, 100, 100)
	f.createBuy(t, 1000, 100)
}

func TestCreatePaused(t *testing.T) {
	f := newFixture(t, 0)
	f.policy.paused = true

	_, err := f.service.Create(context.Background(), testAccount, CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: 100, FiatCurrency: "USD", FiatAmount: 100,
	})
	if !errors.Is(err, ErrPaused) {
		t.Errorf("Create() error = %v, want ErrPaused", err)
	}
}

func TestCreateWithoutAuthorizationFails(t *testing.T) {
	f := newFixture(t, 0)

	// A funded account with no pre-authorization cannot open a BUY order.
	f.bank.Credit("acct_dave", testAsset, 1000)
	_, err := f.service.Create(context.Background(), "acct_dave", CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: 100, FiatCurrency: "USD", FiatAmount: 100,
	})
	if !errors.Is(err, bank.ErrTransferFailed) {
		t.Fatalf("Create() error = %v, want ErrTransferFailed", err)
	}
	if got := f.escrow(t, testAsset); got != 0 {
		t.Errorf("escrow = %d after failed create, want 0", got)
	}
}

func TestDailyLimit(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	f.createBuy(t, 10, 600)
	_, err := f.service.Create(ctx, testAccount, CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: 10, FiatCurrency: "USD", FiatAmount: 600,
	})
	if !errors.Is(err, limits.ErrLimitExceeded) {
		t.Fatalf("second order error = %v, want ErrLimitExceeded", err)
	}

	// A smaller order that fits the remaining headroom still goes through.
	f.createBuy(t, 10, 400)
}

func TestLimitReleasedOnFailedCreate(t *testing.T) {
	f := newFixture(t, 1000)

	// The pull fails after the limit reservation; the reservation must
	// not be left behind.
	f.bank.Approve(testAccount, testAsset, 0)
	_, err := f.service.Create(context.Background(), testAccount, CreateRequest{
		Direction: "BUY", Asset: testAsset, Amount: 100, FiatCurrency: "USD", FiatAmount: 900,
	})
	if !errors.Is(err, bank.ErrTransferFailed) {
		t.Fatalf("Create() error = %v, want ErrTransferFailed", err)
	}

	f.bank.Approve(testAccount, testAsset, 10_000)
	f.createBuy(t, 100, 1000)
}

func TestFillBuy(t *testing.T) {
	f := newFixture(t, 0)
	f.fees.bps = 100
	f.fees.min = 1
	ctx := context.Background()

	order := f.createBuy(t, 100, 250)
	filled, err := f.service.Fill(ctx, testAdmin, order.ID, "wire ref 123")
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if filled.Status != StatusFilled {
		t.Errorf("status = %s, want filled", filled.Status)
	}
	if filled.FilledBy != testAdmin {
		t.Errorf("filledBy = %q, want %q", filled.FilledBy, testAdmin)
	}
	if filled.FilledAt == nil || !filled.FilledAt.Equal(f.now) {
		t.Errorf("filledAt = %v, want %v", filled.FilledAt, f.now)
	}
	// 100 bps on 100 units is 1; the treasury nets 99 and the fee stays
	// in custody.
	if got := f.bank.BalanceOf(testTreasury, testAsset); got != 99 {
		t.Errorf("treasury balance = %d, want 99", got)
	}
	if got := f.bank.CustodyOf(testAsset); got != 1 {
		t.Errorf("custody = %d, want 1 (retained fee)", got)
	}
	if got := f.escrow(t, testAsset); got != 0 {
		t.Errorf("escrow = %d, want 0", got)
	}
	if f.stats.fills != 1 || f.stats.fiatVolume != 250 {
		t.Errorf("stats = %d fills / %d volume, want 1 / 250", f.stats.fills, f.stats.fiatVolume)
	}
}

func TestFillSell(t *testing.T) {
	f := newFixture(t, 0)
	f.fees.bps = 200
	ctx := context.Background()

	order := f.createSell(t, 1000, 500)
	if _, err := f.service.Fill(ctx, testAdmin, order.ID, ""); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	// 200 bps on 1000 is 20: seller pays out the full 1000, the
	// treasury nets 980, and the fee lands in custody.
	if got := f.bank.BalanceOf(testSeller, testAsset); got != 9_000 {
		t.Errorf("seller balance = %d, want 9000", got)
	}
	if got := f.bank.BalanceOf(testTreasury, testAsset); got != 980 {
		t.Errorf("treasury balance = %d, want 980", got)
	}
	if got := f.bank.CustodyOf(testAsset); got != 20 {
		t.Errorf("custody = %d, want 20", got)
	}
}

func TestFillSellRevokedAuthorization(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	order := f.createSell(t, 1000, 500)
	f.bank.Approve(testSeller, testAsset, 0)

	_, err := f.service.Fill(ctx, testAdmin, order.ID, "")
	if !errors.Is(err, bank.ErrTransferFailed) {
		t.Fatalf("Fill error = %v, want ErrTransferFailed", err)
	}

	// The order survives the failed settlement for a later retry.
	got, err := f.service.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status after failed fill = %s, want pending", got.Status)
	}
	if bal := f.bank.BalanceOf(testSeller, testAsset); bal != 10_000 {
		t.Errorf("seller balance = %d, want 10000 untouched", bal)
	}

	// Re-authorize and retry.
	f.bank.Approve(testSeller, testAsset, 1000)
	if _, err := f.service.Fill(ctx, testAdmin, order.ID, ""); err != nil {
		t.Fatalf("retry Fill failed: %v", err)
	}
}

func TestFillUnauthorized(t *testing.T) {
	f := newFixture(t, 0)
	order := f.createBuy(t, 100, 100)

	if _, err := f.service.Fill(context.Background(), testAccount, order.ID, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Fill by non-settler error = %v, want ErrUnauthorized", err)
	}
}

func TestTerminalOrdersRejectFurtherTransitions(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	order := f.createBuy(t, 100, 100)
	if _, err := f.service.Fill(ctx, testAdmin, order.ID, ""); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	statsAfterFirst := f.stats.fills

	if _, err := f.service.Fill(ctx, testAdmin, order.ID, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double fill error = %v, want ErrInvalidState", err)
	}
	f.now = f.now.Add(100 * time.Hour)
	if _, err := f.service.Refund(ctx, testAccount, order.ID, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("refund after fill error = %v, want ErrInvalidState", err)
	}
	if _, err := f.service.Expire(ctx, testAccount, order.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expire after fill error = %v, want ErrInvalidState", err)
	}
	if f.stats.fills != statsAfterFirst {
		t.Errorf("stats changed on rejected double fill")
	}
	if got := f.bank.BalanceOf(testTreasury, testAsset); got != 100 {
		t.Errorf("treasury balance = %d, want 100 (single payout)", got)
	}
}

func TestRefundTimeGate(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.createBuy(t, 300, 100)

	if _, err := f.service.Refund(ctx, testAccount, order.ID, "changed my mind"); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("early refund error = %v, want ErrTooEarly", err)
	}

	// The boundary itself is allowed (inclusive).
	f.now = order.MinRefundAt
	refunded, err := f.service.Refund(ctx, testAccount, order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Refund at boundary failed: %v", err)
	}
	if refunded.Status != StatusRefunded {
		t.Errorf("status = %s, want refunded", refunded.Status)
	}
	if got := f.bank.BalanceOf(testAccount, testAsset); got != 10_000 {
		t.Errorf("account balance = %d, want 10000 restored", got)
	}
	if got := f.escrow(t, testAsset); got != 0 {
		t.Errorf("escrow = %d, want 0", got)
	}
}

func TestRefundAuthorization(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.createBuy(t, 300, 100)
	f.now = f.now.Add(3 * time.Hour)

	if _, err := f.service.Refund(ctx, "acct_mallory", order.ID, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger refund error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.service.Refund(ctx, testAdmin, order.ID, "operator unwind"); err != nil {
		t.Fatalf("operator refund failed: %v", err)
	}
}

func TestExpire(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.createBuy(t, 300, 100)

	if _, err := f.service.Expire(ctx, "acct_anyone", order.ID); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("early expire error = %v, want ErrTooEarly", err)
	}

	f.now = order.ExpireAt
	expired, err := f.service.Expire(ctx, "acct_anyone", order.ID)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if expired.Status != StatusExpired {
		t.Errorf("status = %s, want expired", expired.Status)
	}
	if got := f.bank.BalanceOf(testAccount, testAsset); got != 10_000 {
		t.Errorf("account balance = %d, want 10000 restored", got)
	}
}

func TestApproveStage(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.createBuy(t, 100, 100)

	if _, err := f.service.Approve(ctx, testAccount, order.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("approve by non-settler error = %v, want ErrUnauthorized", err)
	}

	approved, err := f.service.Approve(ctx, testAdmin, order.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	if _, err := f.service.Approve(ctx, testAdmin, order.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double approve error = %v, want ErrInvalidState", err)
	}

	// Approved orders still fill and still refund, but they are not
	// subject to the permissionless expiry sweep.
	f.now = order.ExpireAt.Add(time.Hour)
	if _, err := f.service.Expire(ctx, "acct_anyone", order.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expire of approved order error = %v, want ErrInvalidState", err)
	}
	if _, err := f.service.Fill(ctx, testAdmin, order.ID, ""); err != nil {
		t.Fatalf("Fill of approved order failed: %v", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.createSell(t, 100, 100)

	if _, err := f.service.UpdateMetadata(ctx, testAccount, order.ID, "iban 123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("metadata update by non-owner error = %v, want ErrUnauthorized", err)
	}

	updated, err := f.service.UpdateMetadata(ctx, testSeller, order.ID, "iban 123")
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if updated.Metadata != "iban 123" || !updated.MetadataEdited {
		t.Errorf("metadata = %q edited = %v, want edited record", updated.Metadata, updated.MetadataEdited)
	}

	if _, err := f.service.UpdateMetadata(ctx, testSeller, order.ID, strings.Repeat("x", 5000)); !errors.Is(err, ErrMetadataTooBig) {
		t.Errorf("oversized metadata error = %v, want ErrMetadataTooBig", err)
	}

	// Edited records can no longer be deleted.
	if err := f.service.Delete(ctx, testSeller, order.ID); !errors.Is(err, ErrMetadataEdited) {
		t.Errorf("Delete of edited order error = %v, want ErrMetadataEdited", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// SELL orders hold no escrow and may be deleted by their owner.
	sell := f.createSell(t, 100, 100)
	if err := f.service.Delete(ctx, testAccount, sell.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("delete by non-owner error = %v, want ErrUnauthorized", err)
	}
	if err := f.service.Delete(ctx, testSeller, sell.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := f.service.Get(ctx, sell.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Get after delete error = %v, want ErrOrderNotFound", err)
	}

	// BUY orders hold custody funds; they must unwind, not vanish.
	buy := f.createBuy(t, 100, 100)
	if err := f.service.Delete(ctx, testAccount, buy.ID); !errors.Is(err, ErrEscrowUndeleted) {
		t.Errorf("Delete of escrowed order error = %v, want ErrEscrowUndeleted", err)
	}
}

func TestEscrowReconciliation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	a := f.createBuy(t, 100, 100)
	b := f.createBuy(t, 200, 100)
	c := f.createBuy(t, 300, 100)
	f.createSell(t, 400, 100)

	if got := f.escrow(t, testAsset); got != 600 {
		t.Fatalf("escrow = %d, want 600", got)
	}

	if _, err := f.service.Fill(ctx, testAdmin, a.ID, ""); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	f.now = f.now.Add(30 * time.Hour)
	if _, err := f.service.Refund(ctx, testAccount, b.ID, ""); err != nil {
		t.Fatalf("Refund failed: %v", err)
	}
	if _, err := f.service.Expire(ctx, "acct_anyone", c.ID); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	// Every open BUY amount is accounted for; terminal orders hold none.
	if got := f.escrow(t, testAsset); got != 0 {
		t.Errorf("escrow = %d after unwind, want 0", got)
	}

	open, err := f.service.ListPending(ctx, 50)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	var sum int64
	for _, o := range open {
		if o.Direction == Buy {
			sum += o.Amount
		}
	}
	if sum != 0 {
		t.Errorf("open BUY total = %d, want 0", sum)
	}
}

func TestListByAccount(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.createBuy(t, 100, 100)
	f.now = f.now.Add(time.Minute)
	second := f.createBuy(t, 200, 100)
	f.createSell(t, 300, 100)

	list, err := f.service.ListByAccount(ctx, testAccount, 50)
	if err != nil {
		t.Fatalf("ListByAccount failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("first entry = %s, want newest order %s", list[0].ID, second.ID)
	}
}
