package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cardtable/blackjack-go/internal/cards"
	"github.com/cardtable/blackjack-go/internal/ledger"
	"github.com/cardtable/blackjack-go/internal/table"
)

// scriptedSource deals a fixed rank sequence, wrapping around when the
// script runs short.
type scriptedSource struct {
	ranks []string
	next  int
}

func (s *scriptedSource) Deal() cards.Card {
	r := s.ranks[s.next%len(s.ranks)]
	s.next++
	return cards.Card{Rank: r, Suit: "♠"}
}

func newTestServer(t *testing.T, ranks ...string) (http.Handler, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := table.DefaultConfig()
	if len(ranks) > 0 {
		cfg.NewShoe = func() table.Source { return &scriptedSource{ranks: ranks} }
	}
	registry := table.NewRegistry(cfg, store, log.New(io.Discard, "", 0))
	return NewServer(registry, store).Routes(), store
}

// do sends a request and decodes the JSON response into out (if non-nil).
func do(t *testing.T, h http.Handler, method, path string, body, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return w
}

func register(t *testing.T, h http.Handler, playerID string) {
	t.Helper()
	w := do(t, h, "POST", "/api/v1/players", RegisterRequest{PlayerID: playerID}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", playerID, w.Code, w.Body.String())
	}
}

func TestRegisterAndBalance(t *testing.T) {
	h, _ := newTestServer(t)

	var resp AccountResponse
	w := do(t, h, "POST", "/api/v1/players", RegisterRequest{PlayerID: "alice"}, &resp)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if resp.Account.Balance != ledger.StartingBalance {
		t.Errorf("expected starting balance %d, got %d", ledger.StartingBalance, resp.Account.Balance)
	}

	if w := do(t, h, "POST", "/api/v1/players", RegisterRequest{PlayerID: "alice"}, nil); w.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", w.Code)
	}

	var bal BalanceResponse
	if w := do(t, h, "GET", "/api/v1/players/alice/balance", nil, &bal); w.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", w.Code)
	}
	if bal.Balance != ledger.StartingBalance {
		t.Errorf("expected balance %d, got %d", ledger.StartingBalance, bal.Balance)
	}

	if w := do(t, h, "GET", "/api/v1/players/ghost/balance", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown balance: expected 404, got %d", w.Code)
	}
}

func TestFullRoundOverHTTP(t *testing.T) {
	// Alice bets 100 and stands on {10,9}; the dealer draws to bust.
	h, _ := newTestServer(t, "10", "9", "7", "6", "Q")
	register(t, h, "alice")

	var tbl TableResponse
	if w := do(t, h, "POST", "/api/v1/tables/join", JoinRequest{PlayerID: "alice", Bet: 100}, &tbl); w.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d body %s", w.Code, w.Body.String())
	}
	if tbl.Table.Status != table.StatusWaiting {
		t.Fatalf("expected waiting table, got %s", tbl.Table.Status)
	}

	if w := do(t, h, "POST", "/api/v1/tables/start", StartRequest{PlayerID: "alice"}, &tbl); w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d body %s", w.Code, w.Body.String())
	}
	if tbl.Table.Status != table.StatusPlaying || tbl.Table.CurrentTurn != "alice" {
		t.Fatalf("expected alice's turn, got %+v", tbl.Table)
	}
	if !tbl.Table.Dealer.HoleHidden || len(tbl.Table.Dealer.Cards) != 1 {
		t.Errorf("expected hidden dealer hole card, got %+v", tbl.Table.Dealer)
	}

	if w := do(t, h, "POST", "/api/v1/tables/action", ActionRequest{PlayerID: "alice", Action: "stand"}, &tbl); w.Code != http.StatusOK {
		t.Fatalf("stand: expected 200, got %d body %s", w.Code, w.Body.String())
	}
	if tbl.Table.Status != table.StatusFinished {
		t.Fatalf("expected finished, got %s", tbl.Table.Status)
	}
	if len(tbl.Table.Settlement) != 1 || tbl.Table.Settlement[0].Delta != 100 {
		t.Fatalf("expected a +100 settlement, got %+v", tbl.Table.Settlement)
	}

	var bal BalanceResponse
	do(t, h, "GET", "/api/v1/players/alice/balance", nil, &bal)
	if bal.Balance != 1100 {
		t.Errorf("expected balance 1100 after the win, got %d", bal.Balance)
	}

	// The settled table is gone.
	if w := do(t, h, "GET", "/api/v1/tables/alice", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for settled table, got %d", w.Code)
	}

	var txs TransactionsResponse
	if w := do(t, h, "GET", "/api/v1/players/alice/transactions", nil, &txs); w.Code != http.StatusOK {
		t.Fatalf("transactions: expected 200, got %d", w.Code)
	}
	if len(txs.Transactions) != 2 || txs.Transactions[0].Tag != "win" {
		t.Errorf("expected win on top of the history, got %+v", txs.Transactions)
	}
}

func TestJoinValidation(t *testing.T) {
	h, _ := newTestServer(t)
	register(t, h, "alice")

	cases := []struct {
		name string
		req  JoinRequest
		want int
	}{
		{"missing player id", JoinRequest{Bet: 100}, http.StatusBadRequest},
		{"bet below minimum", JoinRequest{PlayerID: "alice", Bet: 5}, http.StatusBadRequest},
		{"bet above maximum", JoinRequest{PlayerID: "alice", Bet: 2_000_000}, http.StatusBadRequest},
		{"unregistered player", JoinRequest{PlayerID: "ghost", Bet: 100}, http.StatusBadRequest},
		{"bet above balance", JoinRequest{PlayerID: "alice", Bet: 5000}, http.StatusBadRequest},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/v1/tables/join", tt.req, nil)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d body %s", tt.want, w.Code, w.Body.String())
			}
			var apiErr APIError
			if err := json.NewDecoder(w.Body).Decode(&apiErr); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if apiErr.Type != ErrTypeValidation {
				t.Errorf("expected %s, got %s", ErrTypeValidation, apiErr.Type)
			}
		})
	}
}

func TestTableStateErrors(t *testing.T) {
	h, _ := newTestServer(t, "10", "9", "10", "8", "K", "10")
	register(t, h, "alice")
	register(t, h, "bob")

	do(t, h, "POST", "/api/v1/tables/join", JoinRequest{PlayerID: "alice", Bet: 100}, nil)
	do(t, h, "POST", "/api/v1/tables/join", JoinRequest{PlayerID: "bob", Bet: 100}, nil)

	// Only the host can start.
	if w := do(t, h, "POST", "/api/v1/tables/start", StartRequest{PlayerID: "bob"}, nil); w.Code != http.StatusNotFound {
		t.Errorf("non-host start: expected 404, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/api/v1/tables/start", StartRequest{PlayerID: "alice"}, nil); w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", w.Code)
	}

	// Bob acts while it is alice's turn.
	if w := do(t, h, "POST", "/api/v1/tables/action", ActionRequest{PlayerID: "bob", Action: "stand"}, nil); w.Code != http.StatusConflict {
		t.Errorf("out of turn: expected 409, got %d", w.Code)
	}
	// Unknown action verb.
	if w := do(t, h, "POST", "/api/v1/tables/action", ActionRequest{PlayerID: "alice", Action: "fold"}, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown action: expected 400, got %d", w.Code)
	}
}

func TestBonusEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	register(t, h, "alice")

	var resp AccountResponse
	if w := do(t, h, "POST", "/api/v1/players/alice/bonus", nil, &resp); w.Code != http.StatusOK {
		t.Fatalf("bonus: expected 200, got %d", w.Code)
	}
	if resp.Account.Balance != ledger.StartingBalance+ledger.BonusAmount {
		t.Errorf("expected balance %d, got %d", ledger.StartingBalance+ledger.BonusAmount, resp.Account.Balance)
	}

	if w := do(t, h, "POST", "/api/v1/players/alice/bonus", nil, nil); w.Code != http.StatusConflict {
		t.Errorf("second claim: expected 409, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/api/v1/players/ghost/bonus", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown player: expected 404, got %d", w.Code)
	}
}

func TestTransactionsLimitValidation(t *testing.T) {
	h, _ := newTestServer(t)
	register(t, h, "alice")

	if w := do(t, h, "GET", "/api/v1/players/alice/transactions?limit=nope", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	var resp HealthResponse
	if w := do(t, h, "GET", "/health", nil, &resp); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
}

func TestMalformedBody(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/tables/join", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", w.Code)
	}
}
