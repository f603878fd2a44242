// Package v1 contains the full set of handler functions and routes
// supported by the node's v1 HTTP surface.
package v1

import (
	"net/http"

	"github.com/nocoinlabs/nocoin-node/app/services/node/handlers/v1/private"
	"github.com/nocoinlabs/nocoin-node/app/services/node/handlers/v1/public"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/gossip"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
	"github.com/nocoinlabs/nocoin-node/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Gossip *gossip.Client
}

// PublicRoutes binds the operational-health routes, unauthenticated and
// unversioned on the wire.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodGet, "/liveness", pbl.Liveness)
	app.Handle(http.MethodGet, "/readiness", pbl.Readiness)
}

// GossipRoutes binds the node-to-node gossip endpoints at the literal
// paths peers expect, with no version prefix.
func GossipRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Gossip: cfg.Gossip,
	}

	app.Handle(http.MethodPost, "/register", prv.Register)
	app.Handle(http.MethodGet, "/get_chain", prv.GetChain)
	app.Handle(http.MethodGet, "/get_pending_transactions", prv.GetPendingTransactions)
	app.Handle(http.MethodPost, "/new_block", prv.NewBlock)
	app.Handle(http.MethodPost, "/new_transaction", prv.NewTransaction)
	app.Handle(http.MethodPost, "/acknowledge_new_node", prv.AcknowledgeNewNode)
	app.Handle(http.MethodGet, "/node/status", prv.Status)
}
