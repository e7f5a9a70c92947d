package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"settlement-service/internal/domain"
)

type fundingFixture struct {
	wallets  *fakeWallets
	ledger   *fakeLedger
	gateway  *fakeGateway
	notifier *fakeNotifier
	uc       *FundingUsecase
}

func newFundingFixture() *fundingFixture {
	f := &fundingFixture{
		wallets:  newFakeWallets(),
		ledger:   newFakeLedger(),
		gateway:  newFakeGateway(),
		notifier: newFakeNotifier(),
	}
	f.uc = NewFundingUsecase(f.wallets, f.ledger, f.gateway,
		staticUsers{"user-1": "payer@example.com"}, f.notifier,
		"https://pay.example.com", testLogger())
	return f
}

func TestInitiateFunding(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	ctx := context.Background()

	res, err := f.uc.InitiateFunding(ctx, "user-1", 500000)
	if err != nil {
		t.Fatalf("InitiateFunding: %v", err)
	}
	if res.Reference == "" || res.CheckoutURL == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	tx, err := f.ledger.GetByReference(ctx, res.Reference)
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if tx.Status != domain.TxStatusPending {
		t.Errorf("status = %s, want pending", tx.Status)
	}
	if tx.Type != domain.TxTypeFund {
		t.Errorf("type = %s, want fund", tx.Type)
	}
	if tx.ProviderReference == nil {
		t.Error("provider reference not attached")
	}
	if got := f.wallets.balance("user-1"); got != 0 {
		t.Errorf("balance credited before settlement: %d", got)
	}

	// The checkout must be told where to send the payer back.
	want := "https://pay.example.com/api/v1/wallet/fund/verify/" + res.Reference
	if f.gateway.lastCallback != want {
		t.Errorf("callback url = %q, want %q", f.gateway.lastCallback, want)
	}
}

func TestInitiateFundingRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()

	for _, amount := range []int64{0, -1} {
		if _, err := f.uc.InitiateFunding(context.Background(), "user-1", amount); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestInitiateFundingGatewayDownLeavesPending(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	f.gateway.initErr = domain.ErrGatewayTimeout

	_, err := f.uc.InitiateFunding(context.Background(), "user-1", 10000)
	if !errors.Is(err, domain.ErrGatewayTimeout) {
		t.Fatalf("err = %v, want ErrGatewayTimeout", err)
	}
	// The pending ledger row survives so a later retry can reconcile it.
	if got := f.wallets.balance("user-1"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestFinalizeFundingCreditsWalletOnce(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	ctx := context.Background()

	res, err := f.uc.InitiateFunding(ctx, "user-1", 500000)
	if err != nil {
		t.Fatalf("InitiateFunding: %v", err)
	}
	f.gateway.succeed(res.Reference, 500000)

	out, err := f.uc.FinalizeFunding(ctx, res.Reference)
	if err != nil {
		t.Fatalf("FinalizeFunding: %v", err)
	}
	if out.Status != "paid" || !out.Settled {
		t.Fatalf("outcome = %+v, want paid/settled", out)
	}
	if got := f.wallets.balance("user-1"); got != 500000 {
		t.Errorf("balance = %d, want 500000", got)
	}
	if f.notifier.count("user-1", "wallet_funded") != 1 {
		t.Error("expected one wallet_funded notification")
	}

	// Second confirmation observes the terminal state without re-crediting
	// or re-verifying.
	out, err = f.uc.FinalizeFunding(ctx, res.Reference)
	if err != nil {
		t.Fatalf("second FinalizeFunding: %v", err)
	}
	if out.Status != "paid" || out.Settled {
		t.Fatalf("second outcome = %+v, want paid/not settled", out)
	}
	if got := f.wallets.balance("user-1"); got != 500000 {
		t.Errorf("balance after replay = %d, want 500000", got)
	}
	if f.gateway.verifyCalls != 1 {
		t.Errorf("verify calls = %d, want 1", f.gateway.verifyCalls)
	}
}

func TestFinalizeFundingDeclined(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	ctx := context.Background()

	res, err := f.uc.InitiateFunding(ctx, "user-1", 10000)
	if err != nil {
		t.Fatalf("InitiateFunding: %v", err)
	}
	f.gateway.decline(res.Reference)

	out, err := f.uc.FinalizeFunding(ctx, res.Reference)
	if err != nil {
		t.Fatalf("FinalizeFunding: %v", err)
	}
	if out.Status != "failed" {
		t.Errorf("status = %s, want failed", out.Status)
	}
	if got := f.wallets.balance("user-1"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}

	tx, _ := f.ledger.GetByReference(ctx, res.Reference)
	if tx.Status != domain.TxStatusFailed {
		t.Errorf("ledger status = %s, want failed", tx.Status)
	}
}

func TestFinalizeFundingGatewayErrorStaysPending(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	ctx := context.Background()

	res, err := f.uc.InitiateFunding(ctx, "user-1", 10000)
	if err != nil {
		t.Fatalf("InitiateFunding: %v", err)
	}
	f.gateway.verifyErr = domain.ErrGatewayTimeout

	if _, err := f.uc.FinalizeFunding(ctx, res.Reference); !errors.Is(err, domain.ErrGatewayTimeout) {
		t.Fatalf("err = %v, want ErrGatewayTimeout", err)
	}

	tx, _ := f.ledger.GetByReference(ctx, res.Reference)
	if tx.Status != domain.TxStatusPending {
		t.Errorf("ledger status = %s, want pending (retryable)", tx.Status)
	}
}

func TestFinalizeFundingUnknownReference(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()

	if _, err := f.uc.FinalizeFunding(context.Background(), "txn_missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestFinalizeFundingRejectsWrongType(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	ctx := context.Background()

	from := "user-2"
	tx := &domain.Transaction{
		Reference: "txn_support",
		Type:      domain.TxTypeEventSupport,
		FromUser:  &from,
		Amount:    100,
		Currency:  "NGN",
	}
	if err := f.ledger.Create(ctx, tx); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.uc.FinalizeFunding(ctx, "txn_support"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

// Concurrent webhook and poll confirmations for the same reference must
// credit the wallet exactly once.
func TestFinalizeFundingConcurrent(t *testing.T) {
	t.Parallel()
	f := newFundingFixture()
	ctx := context.Background()

	res, err := f.uc.InitiateFunding(ctx, "user-1", 250000)
	if err != nil {
		t.Fatalf("InitiateFunding: %v", err)
	}
	f.gateway.succeed(res.Reference, 250000)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	settled := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.uc.FinalizeFunding(ctx, res.Reference)
			if err != nil {
				t.Errorf("FinalizeFunding: %v", err)
				return
			}
			if out.Settled {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if settled != 1 {
		t.Errorf("settled by %d callers, want exactly 1", settled)
	}
	if got := f.wallets.balance("user-1"); got != 250000 {
		t.Errorf("balance = %d, want 250000 (credited once)", got)
	}
}
