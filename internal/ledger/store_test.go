package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterCreatesFundedAccount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acct, err := s.Register(ctx, "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acct.Balance != StartingBalance {
		t.Errorf("expected starting balance %d, got %d", StartingBalance, acct.Balance)
	}

	if _, err := s.Register(ctx, "alice"); !errors.Is(err, ErrAccountExists) {
		t.Errorf("expected ErrAccountExists, got %v", err)
	}

	ok, err := s.PlayerExists(ctx, "alice")
	if err != nil || !ok {
		t.Errorf("expected alice to exist, got ok=%v err=%v", ok, err)
	}
	ok, err = s.PlayerExists(ctx, "bob")
	if err != nil || ok {
		t.Errorf("expected bob to not exist, got ok=%v err=%v", ok, err)
	}

	txs, err := s.Transactions(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Tag != "register" || txs[0].Delta != StartingBalance {
		t.Errorf("expected a single register transaction, got %+v", txs)
	}
}

func TestDebitCreditKeepsHistoryInSync(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	steps := []struct {
		delta int64
		tag   string
		want  int64
	}{
		{200, "win", 1200},
		{-50, "lose", 1150},
		{0, "push", 1150},
	}
	for _, st := range steps {
		if err := s.DebitCredit(ctx, "alice", st.delta, st.tag, ""); err != nil {
			t.Fatalf("debit/credit %s: %v", st.tag, err)
		}
		bal, err := s.GetBalance(ctx, "alice")
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if bal != st.want {
			t.Errorf("%s: expected balance %d, got %d", st.tag, st.want, bal)
		}
	}

	txs, err := s.Transactions(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	// register + three changes; the zero-delta push must be recorded too.
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(txs))
	}
	if txs[len(txs)-1].Tag != "register" {
		t.Errorf("expected register last in newest-first order, got %s", txs[len(txs)-1].Tag)
	}
	for _, tx := range txs {
		if tx.Tag == "push" && tx.Balance != 1150 {
			t.Errorf("push row carries wrong resulting balance %d", tx.Balance)
		}
	}
}

func TestDebitCreditUnknownPlayer(t *testing.T) {
	s := openTestStore(t)
	if err := s.DebitCredit(context.Background(), "ghost", 10, "win", ""); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}

func TestDebitCreditIdempotentPerKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A repeated write with the same key applies exactly once.
	for i := 0; i < 3; i++ {
		if err := s.DebitCredit(ctx, "alice", 100, "win", "s1:alice:primary"); err != nil {
			t.Fatalf("debit/credit attempt %d: %v", i, err)
		}
	}
	bal, err := s.GetBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != StartingBalance+100 {
		t.Fatalf("expected balance %d, got %d", StartingBalance+100, bal)
	}
	txs, err := s.Transactions(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 { // register + one win
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}

	// A different key is a different write.
	if err := s.DebitCredit(ctx, "alice", -50, "lose", "s1:alice:split"); err != nil {
		t.Fatalf("debit/credit: %v", err)
	}
	if bal, _ := s.GetBalance(ctx, "alice"); bal != StartingBalance+50 {
		t.Fatalf("expected balance %d, got %d", StartingBalance+50, bal)
	}

	// Empty keys never dedupe each other.
	if err := s.DebitCredit(ctx, "alice", 10, "bonus", ""); err != nil {
		t.Fatalf("debit/credit: %v", err)
	}
	if err := s.DebitCredit(ctx, "alice", 10, "bonus", ""); err != nil {
		t.Fatalf("debit/credit: %v", err)
	}
	if bal, _ := s.GetBalance(ctx, "alice"); bal != StartingBalance+70 {
		t.Fatalf("expected balance %d, got %d", StartingBalance+70, bal)
	}
}

func TestGetBalanceUnknownPlayer(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetBalance(context.Background(), "ghost"); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}

func TestDailyBonusCooldown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if _, err := s.Register(ctx, "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	acct, err := s.ClaimDailyBonus(ctx, "alice")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if acct.Balance != StartingBalance+BonusAmount {
		t.Errorf("expected balance %d, got %d", StartingBalance+BonusAmount, acct.Balance)
	}

	// Second claim inside the cooldown window is rejected.
	s.now = func() time.Time { return base.Add(23 * time.Hour) }
	if _, err := s.ClaimDailyBonus(ctx, "alice"); !errors.Is(err, ErrBonusCooldown) {
		t.Fatalf("expected ErrBonusCooldown, got %v", err)
	}

	// Past the cooldown it succeeds again.
	s.now = func() time.Time { return base.Add(25 * time.Hour) }
	acct, err = s.ClaimDailyBonus(ctx, "alice")
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if acct.Balance != StartingBalance+2*BonusAmount {
		t.Errorf("expected balance %d, got %d", StartingBalance+2*BonusAmount, acct.Balance)
	}
}

func TestBonusUnknownPlayer(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ClaimDailyBonus(context.Background(), "ghost"); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}
