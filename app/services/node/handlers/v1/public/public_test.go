package public_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/chainsync/app/services/node/handlers"
	"github.com/ardanlabs/chainsync/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/chainsync/business/web/errs"
	"github.com/ardanlabs/chainsync/foundation/blockchain/state"
	"github.com/ardanlabs/chainsync/foundation/events"
	"github.com/ardanlabs/chainsync/foundation/logger"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

type miner struct {
	err   error
	calls int
}

func (m *miner) SignalMine() error {
	m.calls++
	return m.err
}

func newMux(st *state.State, m *miner) http.Handler {
	return handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      logger.NewNop(),
		State:    st,
		Miner:    m,
		Evts:     events.New[string](),
	})
}

func do(mux http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

// =============================================================================

func TestSubmitTransaction(t *testing.T) {
	t.Log("Given the need to add transactions through the api.")
	{
		st := state.New(state.Config{})
		mux := newMux(st, &miner{})

		const body = `{"sender":"bill","recipient":"ed","amount":10}`

		t.Log("\tTest 0:\tWhen the chain is not initialized.")
		{
			w := do(mux, http.MethodPost, "/v1/tx/submit", body)
			if w.Code != http.StatusConflict {
				t.Fatalf("\t%s\tTest 0:\tShould refuse the transaction: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse the transaction.", success)
		}

		if err := st.InitializeWithGenesisBlock(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a genesis block: %v", failed, err)
		}

		t.Log("\tTest 1:\tWhen the chain is initialized.")
		{
			w := do(mux, http.MethodPost, "/v1/tx/submit", body)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 1:\tShould accept the transaction: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the transaction.", success)

			w = do(mux, http.MethodGet, "/v1/tx/uncommitted/list", "")

			var txs []struct {
				Sender    string `json:"sender"`
				Formatted string `json:"formatted"`
			}
			if err := json.NewDecoder(w.Body).Decode(&txs); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to decode the pool: %v", failed, err)
			}
			if len(txs) != 1 || txs[0].Formatted != "bill → ed: $10" {
				t.Fatalf("\t%s\tTest 1:\tShould list the transaction: %+v", failed, txs)
			}
			t.Logf("\t%s\tTest 1:\tShould list the transaction.", success)
		}

		t.Log("\tTest 2:\tWhen the transaction is invalid.")
		{
			w := do(mux, http.MethodPost, "/v1/tx/submit", `{"recipient":"ed","amount":10}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 2:\tShould reject the transaction: %d", failed, w.Code)
			}

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to decode the error: %v", failed, err)
			}
			if _, exists := resp.Fields["sender"]; !exists {
				t.Fatalf("\t%s\tTest 2:\tShould name the missing field: %+v", failed, resp)
			}
			t.Logf("\t%s\tTest 2:\tShould name the missing field.", success)

			w = do(mux, http.MethodPost, "/v1/tx/submit", `{"sender":"bill","recipient":"ed","tip":1}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 2:\tShould reject unknown fields: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 2:\tShould reject unknown fields.", success)
		}

		t.Log("\tTest 3:\tWhen mining has been reserved.")
		{
			if err := st.ReserveMining(); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to reserve mining: %v", failed, err)
			}

			before := len(st.PendingTransactions())

			w := do(mux, http.MethodPost, "/v1/tx/submit", `{"sender":"ed","recipient":"pavel","amount":1}`)
			if w.Code != http.StatusConflict {
				t.Fatalf("\t%s\tTest 3:\tShould refuse the transaction: %d", failed, w.Code)
			}
			if got := len(st.PendingTransactions()); got != before {
				t.Fatalf("\t%s\tTest 3:\tShould leave the pool untouched: %d != %d", failed, got, before)
			}
			t.Logf("\t%s\tTest 3:\tShould refuse the transaction.", success)

			st.ReleaseMining()
		}
	}
}

func TestSignalMining(t *testing.T) {
	t.Log("Given the need to start mining through the api.")
	{
		st := state.New(state.Config{})

		t.Log("\tTest 0:\tWhen there is nothing to mine.")
		{
			m := miner{err: state.ErrNoTransactions}
			w := do(newMux(st, &m), http.MethodPost, "/v1/mining/signal", "")
			if w.Code != http.StatusConflict {
				t.Fatalf("\t%s\tTest 0:\tShould refuse to mine: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse to mine.", success)
		}

		t.Log("\tTest 1:\tWhen mining can start.")
		{
			m := miner{}
			w := do(newMux(st, &m), http.MethodPost, "/v1/mining/signal", "")
			if w.Code != http.StatusAccepted || m.calls != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould signal the miner: %d %d", failed, w.Code, m.calls)
			}
			t.Logf("\t%s\tTest 1:\tShould signal the miner.", success)
		}
	}
}

func TestStatus(t *testing.T) {
	t.Log("Given the need to report what the node is doing.")
	{
		st := state.New(state.Config{})
		mux := newMux(st, &miner{})

		var status public.Status
		w := do(mux, http.MethodGet, "/v1/node/status", "")
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the status: %v", failed, err)
		}

		if !status.ChainIsEmpty || status.Status != state.StatusInitializing {
			t.Fatalf("\t%s\tShould report the chain is initializing: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the chain is initializing.", success)
	}
}
