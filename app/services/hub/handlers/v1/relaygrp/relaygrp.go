// Package relaygrp maintains the group of handlers for the hub.
package relaygrp

import (
	"context"
	"net/http"

	"github.com/ardanlabs/chainsync/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsync/foundation/relay"
	"github.com/ardanlabs/chainsync/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	Relay *relay.Relay
	Coord *consensus.Coordinator
}

// Routes binds all the version 1 hub routes.
func Routes(app *web.App, cfg Config) {
	hgh := Handlers{
		Log:   cfg.Log,
		Relay: cfg.Relay,
		Coord: cfg.Coord,
		WS: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/relay", hgh.Connect)
	app.Handle(http.MethodGet, version, "/hub/status", hgh.Status)
}

// Handlers manages the set of hub endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Relay *relay.Relay
	Coord *consensus.Coordinator
	WS    websocket.Upgrader
}

// Connect upgrades the request to a websocket and subscribes it to the relay
// until the connection goes away.
func (h *Handlers) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// The upgrader replies to the client on failure.
	ws, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Infow("relay", "traceid", v.TraceID, "status", "upgrade failed", "ERROR", err)
		return nil
	}

	h.Log.Infow("relay", "traceid", v.TraceID, "status", "connection upgraded", "remoteaddr", r.RemoteAddr)

	// The upgrade wrote the response.
	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	return h.Relay.Serve(ctx, ws)
}

// Status returns the number of live connections and open sessions.
func (h *Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := status{
		Clients:  len(h.Relay.Clients()),
		Sessions: h.Coord.OpenSessions(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

type status struct {
	Clients  int `json:"clients"`
	Sessions int `json:"sessions"`
}
