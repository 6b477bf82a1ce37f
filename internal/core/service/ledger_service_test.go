package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

func TestLedger_EnsureUser_BootstrapsOnce(t *testing.T) {
	f := newFixture(t)
	id := domain.Identity{UserID: "u1", Email: "alice@example.com"}

	u, created, err := f.ledger.EnsureUser(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if !created || u.Credits != domain.InitialCredits || u.Plan != domain.PlanFree {
		t.Fatalf("unexpected bootstrap: created=%v credits=%d plan=%s", created, u.Credits, u.Plan)
	}
	if u.DisplayName != "alice" {
		t.Errorf("display name = %q, want alice", u.DisplayName)
	}

	// Spend, then observe the identity again: the account must not be reset.
	if err := f.ledger.ReserveForPublication(context.Background(), "u1", 3, false); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	u, created, err = f.ledger.EnsureUser(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if created || u.Credits != 0 {
		t.Errorf("existing user overwritten: created=%v credits=%d", created, u.Credits)
	}
}

func TestLedger_EnsureUser_EmptyID(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.ledger.EnsureUser(context.Background(), domain.Identity{}); err == nil {
		t.Fatal("expected error for empty identity")
	}
}

func TestLedger_Reserve(t *testing.T) {
	tests := []struct {
		name        string
		credits     int64
		exempt      bool
		wantErr     error
		wantBalance int64
	}{
		{name: "sufficient", credits: 5, wantBalance: 2},
		{name: "exact", credits: 3, wantBalance: 0},
		{name: "insufficient", credits: 2, wantErr: domain.ErrInsufficientCredits, wantBalance: 2},
		{name: "exempt leaves balance", credits: 0, exempt: true, wantBalance: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedUser(t, "u1", tc.credits, domain.PlanFree)

			err := f.ledger.ReserveForPublication(context.Background(), "u1", domain.PublicationCost, tc.exempt)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got := f.balance(t, "u1"); got != tc.wantBalance {
				t.Errorf("balance = %d, want %d", got, tc.wantBalance)
			}
		})
	}
}

func TestLedger_Reserve_ExemptSkipsStore(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 0, domain.PlanFree)

	if err := f.ledger.ReserveForPublication(context.Background(), "u1", 3, true); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if f.users.decrementCalls != 0 {
		t.Errorf("exempt reservation hit the store %d times", f.users.decrementCalls)
	}
}

func TestLedger_Reserve_RetriesWriteConflict(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 5, domain.PlanFree)
	f.users.decrementErrs = []error{domain.ErrWriteConflict, domain.ErrWriteConflict}

	if err := f.ledger.ReserveForPublication(context.Background(), "u1", 3, false); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if f.users.decrementCalls != 3 {
		t.Errorf("decrement calls = %d, want 3", f.users.decrementCalls)
	}
	if got := f.balance(t, "u1"); got != 2 {
		t.Errorf("balance = %d, want 2", got)
	}
}

func TestLedger_Reserve_ConflictRetryExhausted(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 5, domain.PlanFree)
	f.users.decrementErrs = make([]error, 10)
	for i := range f.users.decrementErrs {
		f.users.decrementErrs[i] = domain.ErrWriteConflict
	}

	err := f.ledger.ReserveForPublication(context.Background(), "u1", 3, false)
	if !errors.Is(err, domain.ErrConflictRetryExhausted) {
		t.Fatalf("err = %v, want ErrConflictRetryExhausted", err)
	}
	if f.users.decrementCalls != int(fastRetry.MaxTries) {
		t.Errorf("decrement calls = %d, want %d", f.users.decrementCalls, fastRetry.MaxTries)
	}
	if got := f.balance(t, "u1"); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}
}

func TestLedger_Reserve_InsufficientIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 1, domain.PlanFree)

	_ = f.ledger.ReserveForPublication(context.Background(), "u1", 3, false)
	if f.users.decrementCalls != 1 {
		t.Errorf("decrement calls = %d, want 1", f.users.decrementCalls)
	}
}

func TestLedger_ConcurrentReservesNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 9, domain.PlanFree)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.ledger.ReserveForPublication(context.Background(), "u1", 3, false); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 3 {
		t.Errorf("successful reservations = %d, want 3", success)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestLedger_MarkResolved_AtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 3, domain.PlanFree)

	first, err := f.ledger.MarkResolved(context.Background(), "u1", "ad1", domain.OutcomeCorrect)
	if err != nil || !first {
		t.Fatalf("first MarkResolved = %v, %v", first, err)
	}
	second, err := f.ledger.MarkResolved(context.Background(), "u1", "ad1", domain.OutcomeSkipped)
	if err != nil || second {
		t.Fatalf("second MarkResolved = %v, %v", second, err)
	}
}

func TestLedger_CreditAndRefundPublishBalanceEvents(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 3, domain.PlanFree)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, stop, err := f.ledger.SubscribeBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	if err := f.ledger.CreditForCorrectAnswer(context.Background(), "u1", "ad1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.ledger.Refund(context.Background(), "u1", 3); err != nil {
		t.Fatalf("refund: %v", err)
	}

	want := []ports.BalanceEvent{
		{UserID: "u1", Credits: 4, Delta: 1, Reason: ports.ReasonCorrectAnswer, At: fixedNow},
		{UserID: "u1", Credits: 7, Delta: 3, Reason: ports.ReasonRefund, At: fixedNow},
	}
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Errorf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestLedger_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 3, domain.PlanFree)

	name := "  Alice  "
	u, err := f.ledger.UpdateProfile(context.Background(), "u1", ports.ProfileUpdate{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.DisplayName != "Alice" || u.Credits != 3 {
		t.Errorf("unexpected profile: %+v", u)
	}

	empty := " "
	if _, err := f.ledger.UpdateProfile(context.Background(), "u1", ports.ProfileUpdate{DisplayName: &empty}); !errors.Is(err, domain.ErrInvalidProfile) {
		t.Errorf("err = %v, want ErrInvalidProfile", err)
	}
	bad := "javascript:alert(1)"
	if _, err := f.ledger.UpdateProfile(context.Background(), "u1", ports.ProfileUpdate{PhotoURL: &bad}); !errors.Is(err, domain.ErrInvalidProfile) {
		t.Errorf("err = %v, want ErrInvalidProfile", err)
	}
}

func TestLedger_SetPlan(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 3, domain.PlanFree)

	if err := f.ledger.SetPlan(context.Background(), "u1", "gold"); !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("err = %v, want ErrInvalidPlan", err)
	}
	if err := f.ledger.SetPlan(context.Background(), "u1", domain.PlanStandard); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}
	u, _ := f.ledger.GetUser(context.Background(), "u1")
	if u.Plan != domain.PlanStandard {
		t.Errorf("plan = %s, want standard", u.Plan)
	}
}

func TestLedger_CreditForCorrectAnswerIsKeyedOnAd(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1", 3, domain.PlanFree)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.ledger.CreditForCorrectAnswer(ctx, "u1", "ad1"); err != nil {
			t.Fatalf("credit ad1: %v", err)
		}
	}
	if err := f.ledger.CreditForCorrectAnswer(ctx, "u1", "ad2"); err != nil {
		t.Fatalf("credit ad2: %v", err)
	}
	if got := f.balance(t, "u1"); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}
	if err := f.ledger.CreditForCorrectAnswer(ctx, "ghost", "ad1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("unknown user: err = %v", err)
	}
}
