// Package public maintains the handlers exposed for operational checks:
// process liveness and dependency readiness.
package public

import (
	"context"
	"net/http"
	"os"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
	"github.com/nocoinlabs/nocoin-node/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operational-health endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

type healthStatus struct {
	Status string `json:"status"`
	Host   string `json:"host,omitempty"`
}

// Liveness returns 200 as long as the process can respond at all.
func (h Handlers) Liveness(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	host, _ := os.Hostname()

	status := healthStatus{
		Status: "up",
		Host:   host,
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Readiness returns 200 once the node has a usable chain to serve, i.e.
// state.New or state.NewAdopted has already completed.
func (h Handlers) Readiness(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Height() == 0 {
		return web.Respond(ctx, w, healthStatus{Status: "not ready"}, http.StatusServiceUnavailable)
	}

	return web.Respond(ctx, w, healthStatus{Status: "ok"}, http.StatusOK)
}
