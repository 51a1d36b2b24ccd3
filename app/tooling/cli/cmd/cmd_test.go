package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/chainsync/app/services/node/handlers"
	"github.com/ardanlabs/chainsync/foundation/blockchain/state"
	"github.com/ardanlabs/chainsync/foundation/events"
	"github.com/ardanlabs/chainsync/foundation/logger"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

type miner struct{ st *state.State }

func (m miner) SignalMine() error {
	if m.st.NoPendingTransactions() {
		return state.ErrNoTransactions
	}
	return nil
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Log("Given the need to drive a node from the command line.")
	{
		st := state.New(state.Config{})
		if err := st.InitializeWithGenesisBlock(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a genesis block: %v", failed, err)
		}

		srv := httptest.NewServer(handlers.PublicMux(handlers.MuxConfig{
			Shutdown: make(chan os.Signal, 1),
			Log:      logger.NewNop(),
			State:    st,
			Miner:    miner{st: st},
			Evts:     events.New[string](),
		}))
		defer srv.Close()

		t.Log("\tTest 0:\tWhen there is nothing to mine.")
		{
			_, err := run(t, "mine", "--url", srv.URL)
			if err == nil || !strings.Contains(err.Error(), "409") {
				t.Fatalf("\t%s\tTest 0:\tShould report the conflict: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report the conflict.", success)
		}

		t.Log("\tTest 1:\tWhen a transaction is sent.")
		{
			if _, err := run(t, "send", "--url", srv.URL, "--from", "bill", "--to", "ed", "--amount", "2.5"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould send the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould send the transaction.", success)

			out, err := run(t, "pending", "--url", srv.URL)
			if err != nil || !strings.Contains(out, "bill → ed: $2.5") {
				t.Fatalf("\t%s\tTest 1:\tShould list the transaction: %q %v", failed, out, err)
			}
			t.Logf("\t%s\tTest 1:\tShould list the transaction.", success)

			out, err = run(t, "status", "--url", srv.URL)
			if err != nil || !strings.Contains(out, "transactions: 1") {
				t.Fatalf("\t%s\tTest 1:\tShould report the node is ready: %q %v", failed, out, err)
			}
			t.Logf("\t%s\tTest 1:\tShould report the node is ready.", success)
		}

		t.Log("\tTest 2:\tWhen the chain is listed.")
		{
			out, err := run(t, "blocks", "--url", srv.URL, "--verify")
			if err != nil || !strings.Contains(out, "chain verified: blocks[1]") {
				t.Fatalf("\t%s\tTest 2:\tShould verify the chain: %q %v", failed, out, err)
			}
			t.Logf("\t%s\tTest 2:\tShould verify the chain.", success)
		}
	}
}
