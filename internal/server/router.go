package server

import (
	"net/http"
	"sort"
	"strings"
)

// BasicRouter implements the [Router] interface over [http.ServeMux].
//
// Middleware wraps the whole mux, so request logging also covers paths that
// fall through to 404.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      []string
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use adds [Middleware] to the stack, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for the specified HTTP method and path. Requests
// with any other method get a 405.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.routes = append(r.routes, path)
	r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, req)
	}))
}

// Handler registers a custom [Handler] implementation under every route it
// serves. Method filtering is the handler's own responsibility.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.routes = append(r.routes, route)
		r.mux.Handle(route, handler)
	}
}

// Routes returns all registered paths, sorted.
func (r *BasicRouter) Routes() []string {
	routes := append([]string(nil), r.routes...)
	sort.Strings(routes)
	return routes
}

// ServeHTTP implements [http.Handler], running the middleware chain around
// the mux. The last middleware added sits closest to the handlers.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.mux
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	h.ServeHTTP(w, req)
}
