package invoke

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrorFunc renders an error Response. The router uses it for unknown routes,
// wrong methods and malformed envelopes so that errors share the handlers'
// envelope in both runtimes.
type ErrorFunc func(ctx context.Context, req Request, status int, message string) Response

// Route is one registered operation. Pattern segments written as {name}
// bind path parameters, e.g. /users/{id}.
type Route struct {
	Method  string
	Pattern string
	Handler Handler
}

// Router is the single route table shared by both runtimes.
type Router struct {
	routes []Route
	onErr  ErrorFunc
}

// NewRouter returns an empty router. A nil onErr renders {"message": ...}.
func NewRouter(onErr ErrorFunc) *Router {
	if onErr == nil {
		onErr = func(_ context.Context, _ Request, status int, msg string) Response {
			return JSON(status, map[string]string{"message": msg})
		}
	}
	return &Router{onErr: onErr}
}

// Handle registers h for method and pattern.
func (r *Router) Handle(method, pattern string, h Handler) {
	r.routes = append(r.routes, Route{Method: strings.ToUpper(method), Pattern: pattern, Handler: h})
}

// Routes returns a copy of the registered routes.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Error renders an error response through the configured ErrorFunc.
func (r *Router) Error(ctx context.Context, req Request, status int, msg string) Response {
	return r.onErr(ctx, req, status, msg)
}

// Dispatch routes req to its handler. Path parameters bound by the matched
// pattern are merged over any already present on req.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	pathMatched := false
	for _, rt := range r.routes {
		params, ok := matchPattern(rt.Pattern, req.Path)
		if !ok {
			continue
		}
		pathMatched = true
		if rt.Method != strings.ToUpper(req.Method) {
			continue
		}
		if len(params) > 0 {
			merged := make(map[string]string, len(req.PathParams)+len(params))
			for k, v := range req.PathParams {
				merged[k] = v
			}
			for k, v := range params {
				merged[k] = v
			}
			req.PathParams = merged
		}
		return rt.Handler(ctx, req)
	}
	if pathMatched {
		return r.onErr(ctx, req, http.StatusMethodNotAllowed, "method not allowed")
	}
	return r.onErr(ctx, req, http.StatusNotFound, "route not found")
}

// Mount registers every route on g. {name} segments become gin :name
// parameters.
func (r *Router) Mount(g gin.IRoutes) {
	for _, rt := range r.routes {
		g.Handle(rt.Method, ginPattern(rt.Pattern), ginHandler(rt.Handler, r.onErr))
	}
}

// MountFallbacks installs the router's 404/405 responses on e.
func (r *Router) MountFallbacks(e *gin.Engine) {
	e.HandleMethodNotAllowed = true
	e.NoRoute(ginHandler(func(ctx context.Context, req Request) Response {
		return r.onErr(ctx, req, http.StatusNotFound, "route not found")
	}, r.onErr))
	e.NoMethod(ginHandler(func(ctx context.Context, req Request) Response {
		return r.onErr(ctx, req, http.StatusMethodNotAllowed, "method not allowed")
	}, r.onErr))
}

func ginPattern(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if name, ok := paramName(s); ok {
			segs[i] = ":" + name
		}
	}
	return strings.Join(segs, "/")
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// matchPattern matches path against pattern segment by segment. A single
// trailing slash on path is ignored.
func matchPattern(pattern, path string) (map[string]string, bool) {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return nil, false
	}
	var params map[string]string
	for i := range ps {
		if name, ok := paramName(ps[i]); ok {
			if xs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[name] = xs[i]
			continue
		}
		if ps[i] != xs[i] {
			return nil, false
		}
	}
	return params, true
}
