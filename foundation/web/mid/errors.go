// Package mid contains the set of middleware functions the node's HTTP
// server wraps every handler with.
package mid

import (
	"context"
	"net/http"

	v1 "github.com/nocoinlabs/nocoin-node/business/web/v1"
	"github.com/nocoinlabs/nocoin-node/foundation/web"
	"go.uber.org/zap"
)

// Errors handles errors coming out of the call chain. It detects normal
// application errors which are used to respond to the client in a
// uniform way, with the RequestError's message and status. Unexpected
// errors (anything that is not a RequestError) are shown to the caller
// as a generic 500.
func Errors(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if err := handler(ctx, w, r); err != nil {
				v, verr := web.GetValues(ctx)
				if verr != nil {
					return verr
				}

				log.Errorw("ERROR", "traceid", v.TraceID, "message", err)

				var er struct {
					Error string `json:"error"`
				}
				status := http.StatusInternalServerError

				if re := v1.GetRequestError(err); re != nil {
					er.Error = re.Error()
					status = re.Status
				} else {
					er.Error = http.StatusText(http.StatusInternalServerError)
				}

				if err := web.Respond(ctx, w, er, status); err != nil {
					return err
				}

				if web.IsShutdown(err) {
					return err
				}
			}

			return nil
		}

		return h
	}

	return m
}
