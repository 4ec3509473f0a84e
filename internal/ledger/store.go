// Package ledger persists player accounts and their transaction history
// in SQLite. Every balance change is written together with a transaction
// row in one database transaction, so the history always reconciles with
// the balance.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StartingBalance is credited to every newly registered player.
const StartingBalance int64 = 1000

// BonusAmount is credited by ClaimDailyBonus.
const BonusAmount int64 = 500

// BonusCooldown is the minimum wait between bonus claims.
const BonusCooldown = 24 * time.Hour

// --------- Errors ---------

var (
	// ErrNoAccount means the player id has never been registered.
	ErrNoAccount = errors.New("no such account")
	// ErrAccountExists means the player id is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrBonusCooldown means the daily bonus was claimed too recently.
	ErrBonusCooldown = errors.New("bonus already claimed")
)

// --------- Data models ---------

// Account is a player's ledger record.
type Account struct {
	PlayerID    string     `json:"player_id"`
	Balance     int64      `json:"balance"`
	CreatedAt   time.Time  `json:"created_at"`
	LastBonusAt *time.Time `json:"last_bonus_at,omitempty"`
}

// Transaction is one balance change. Delta can be negative; Balance is
// the account balance after the change was applied.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	PlayerID  string    `json:"player_id"`
	Delta     int64     `json:"delta"`
	Tag       string    `json:"tag"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// --------- Store ---------

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens/creates a SQLite database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// --------- Migrations ---------

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			player_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_bonus_at TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			delta INTEGER NOT NULL,
			tag TEXT NOT NULL,
			balance INTEGER NOT NULL,
			idem_key TEXT,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(player_id) REFERENCES accounts(player_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_player_created ON transactions(player_id, created_at DESC);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idem_key ON transactions(idem_key);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// --------- Accounts ---------

// Register creates an account with the starting balance. The opening
// credit is recorded as a transaction tagged "register".
func (s *Store) Register(ctx context.Context, playerID string) (Account, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts(player_id, balance, created_at) VALUES(?, ?, ?)`,
		playerID, StartingBalance, now); err != nil {
		if isConstraintErr(err) {
			return Account{}, ErrAccountExists
		}
		return Account{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions(id, player_id, delta, tag, balance, created_at)
		 VALUES(?, ?, ?, 'register', ?, ?)`,
		uuid.NewString(), playerID, StartingBalance, StartingBalance, now); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, err
	}
	return Account{PlayerID: playerID, Balance: StartingBalance, CreatedAt: now}, nil
}

// GetAccount returns the full account record.
func (s *Store) GetAccount(ctx context.Context, playerID string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, balance, created_at, last_bonus_at FROM accounts WHERE player_id=?`,
		playerID).Scan(&a.PlayerID, &a.Balance, &a.CreatedAt, &a.LastBonusAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNoAccount
	}
	return a, err
}

// PlayerExists reports whether the player id is registered.
func (s *Store) PlayerExists(ctx context.Context, playerID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE player_id=?`, playerID).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

// GetBalance returns the current balance.
func (s *Store) GetBalance(ctx context.Context, playerID string) (int64, error) {
	var bal int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE player_id=?`, playerID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoAccount
	}
	return bal, err
}

// --------- Transactions ---------

// DebitCredit applies delta to the balance and records a transaction row
// in the same database transaction. A zero delta still records a row so
// pushes show up in the history. A non-empty idemKey makes the write
// idempotent: if a row with the same key already exists nothing is
// applied the second time, so a retry after a lost acknowledgment cannot
// double-pay. Race: a concurrent writer with the same key loses the
// unique-index insert and its balance update rolls back with the tx.
func (s *Store) DebitCredit(ctx context.Context, playerID string, delta int64, tag, idemKey string) error {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bal int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE player_id=?`, playerID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoAccount
	}
	if err != nil {
		return err
	}

	// NULL keys stay distinct under the unique index.
	key := sql.NullString{String: idemKey, Valid: idemKey != ""}

	bal += delta
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance=? WHERE player_id=?`, bal, playerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions(id, player_id, delta, tag, balance, idem_key, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), playerID, delta, tag, bal, key, now); err != nil {
		if idemKey != "" && isConstraintErr(err) {
			return nil
		}
		return err
	}
	return tx.Commit()
}

// Transactions returns the player's history, newest first.
func (s *Store) Transactions(ctx context.Context, playerID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, delta, tag, balance, created_at
		FROM transactions WHERE player_id=?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var id string
		if err := rows.Scan(&id, &t.PlayerID, &t.Delta, &t.Tag, &t.Balance, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --------- Bonus ---------

// ClaimDailyBonus credits the bonus amount if the cooldown has elapsed
// since the last claim. Returns the updated account.
func (s *Store) ClaimDailyBonus(ctx context.Context, playerID string) (Account, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback()

	var a Account
	err = tx.QueryRowContext(ctx,
		`SELECT player_id, balance, created_at, last_bonus_at FROM accounts WHERE player_id=?`,
		playerID).Scan(&a.PlayerID, &a.Balance, &a.CreatedAt, &a.LastBonusAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNoAccount
	}
	if err != nil {
		return Account{}, err
	}
	if a.LastBonusAt != nil && now.Sub(*a.LastBonusAt) < BonusCooldown {
		return Account{}, ErrBonusCooldown
	}

	a.Balance += BonusAmount
	a.LastBonusAt = &now
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance=?, last_bonus_at=? WHERE player_id=?`,
		a.Balance, now, playerID); err != nil {
		return Account{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions(id, player_id, delta, tag, balance, created_at)
		 VALUES(?, ?, ?, 'bonus', ?, ?)`,
		uuid.NewString(), playerID, BonusAmount, a.Balance, now); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, err
	}
	return a, nil
}

func isConstraintErr(err error) bool {
	// modernc sqlite reports violations with messages containing
	// "constraint failed" or "UNIQUE constraint failed".
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "unique constraint")
}
