// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/chainsync/business/web/errs"
	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/state"
	"github.com/ardanlabs/chainsync/foundation/events"
	"github.com/ardanlabs/chainsync/foundation/validate"
	"github.com/ardanlabs/chainsync/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RenderEvent is published on the events channel every time the state of
// the node changes.
const RenderEvent = "render"

// Miner interface represents the behavior required to be implemented by any
// package that starts mining on behalf of a user.
type Miner interface {
	SignalMine() error
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Miner Miner
	Evts  *events.Events[string]
}

// Routes binds all the public routes.
func Routes(app *web.App, cfg Config) {
	pbl := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Miner: cfg.Miner,
		Evts:  cfg.Evts,
		WS: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/node/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/mining/signal", pbl.SignalMining)
}

// =============================================================================

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Miner Miner
	Evts  *events.Events[string]
	WS    websocket.Upgrader
}

// Events handles a web socket to provide events to a client. A render
// event is sent with the current status right away.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// The upgrader replies to the client on failure.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Infow("events", "traceid", v.TraceID, "status", "upgrade failed", "ERROR", err)
		return nil
	}
	defer c.Close()

	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	ch := h.Evts.Subscribe(v.TraceID)
	defer h.Evts.Unsubscribe(v.TraceID)

	if err := h.writeEvent(c, RenderEvent); err != nil {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := h.writeEvent(c, msg); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toStatus(h.State), http.StatusOK)
}

// Blocks returns the local chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Chain(), http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.State.PendingTransactions()), http.StatusOK)
}

// SubmitTransaction adds a new transaction to the pending pool. It is
// refused while the chain is initializing or a block is being mined.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	switch {
	case h.State.ChainIsEmpty():
		return errs.NewTrusted(state.ErrEmptyChain, http.StatusConflict)
	case h.State.IsMining():
		return errs.NewTrusted(state.ErrMiningInProgress, http.StatusConflict)
	}

	tran := database.NewTx(ntx.Sender, ntx.Recipient, ntx.Amount)

	h.Log.Infow("add tran", "traceid", v.TraceID, "tx", tran)
	h.State.AddTransaction(tran)

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to pending pool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining starts mining the pending transactions.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Miner.SignalMine(); err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions), errors.Is(err, state.ErrMiningInProgress):
			return errs.NewTrusted(err, http.StatusConflict)
		default:
			return err
		}
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// =============================================================================

func (h Handlers) writeEvent(c *websocket.Conn, msg string) error {
	e := event{Kind: "log", Message: msg}
	if msg == RenderEvent {
		st := toStatus(h.State)
		e = event{Kind: RenderEvent, Status: &st}
	}

	return c.WriteJSON(e)
}
