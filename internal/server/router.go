package server

import "net/http"

// Middleware wraps an [http.Handler] with additional behavior, such as
// request logging.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that declares the path patterns it serves.
// The callback handler implements it to claim the redirect route.
type Handler interface {
	http.Handler
	Routes() []string
}

// BasicRouter dispatches the callback listener's requests through a
// middleware chain. Routing itself is delegated to an [http.ServeMux].
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewBasicRouter creates an empty BasicRouter.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware to the chain. The first middleware added observes
// a request first.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handler registers every route the handler declares, wrapped in the
// middleware chain as it stands. Middleware added later is not applied to
// routes already registered.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.wrap(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the whole router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// wrap applies the chain in reverse so the earliest Use call ends up
// outermost.
func (r *BasicRouter) wrap(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.chain) - 1; i >= 0; i-- {
		wrapped = r.chain[i](wrapped)
	}
	return wrapped
}
