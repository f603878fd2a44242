package web

// Middleware is a function designed to run some code before and/or after
// another Handler, wrapping it and returning a new Handler.
type Middleware func(Handler) Handler

// wrapMiddleware creates a new handler by wrapping middleware around a
// final handler. The middlewares are executed in the order they are
// provided: the first is the outermost, and the last wraps the final
// handler directly.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h := mw[i]
		if h != nil {
			handler = h(handler)
		}
	}

	return handler
}
