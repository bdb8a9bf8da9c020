package router

import (
	"fmt"
	"sort"
	"strings"

	"targetapi/pkg/models"
)

type MatchKind int

const (
	NotFound MatchKind = iota
	Found
	MethodNotAllowed
	Redirect
)

type Match struct {
	Kind         MatchKind
	Route        *models.RouteConfig
	Allowed      []string
	RedirectPath string
}

// Router is an exact-path table: path -> method -> route. allowed keeps the
// Allow list of the first route declared for each path, which is what a 405
// on that path reports.
type Router struct {
	routes  map[string]map[string]*models.RouteConfig
	allowed map[string][]string
}

func NewRouter(routes []models.RouteConfig) (*Router, error) {
	r := &Router{
		routes:  make(map[string]map[string]*models.RouteConfig),
		allowed: make(map[string][]string),
	}

	for i := range routes {
		route := &routes[i]

		if !strings.HasPrefix(route.Path, "/") {
			return nil, fmt.Errorf("route %q: path %q must start with '/'", route.Name, route.Path)
		}
		if len(route.Methods) == 0 {
			return nil, fmt.Errorf("route %q: at least one method is required", route.Name)
		}

		methods, ok := r.routes[route.Path]
		if !ok {
			methods = make(map[string]*models.RouteConfig)
			r.routes[route.Path] = methods
			r.allowed[route.Path] = allowedMethods(route.Methods)
		}

		for _, m := range route.Methods {
			method := strings.ToUpper(strings.TrimSpace(m))
			if existing, dup := methods[method]; dup && existing != route {
				return nil, fmt.Errorf("route %q: %s %s is already served by route %q", route.Name, method, route.Path, existing.Name)
			}
			methods[method] = route
		}
	}

	// A GET route answers HEAD unless HEAD is routed explicitly.
	for _, methods := range r.routes {
		if get, ok := methods[models.METHOD_GET]; ok {
			if _, ok := methods[models.METHOD_HEAD]; !ok {
				methods[models.METHOD_HEAD] = get
			}
		}
	}

	return r, nil
}

func (r *Router) Match(method, path string) Match {
	methods, ok := r.routes[path]
	if !ok {
		if alt, ok := r.slashAlternative(path); ok {
			return Match{Kind: Redirect, RedirectPath: alt}
		}
		return Match{Kind: NotFound}
	}

	if route, ok := methods[strings.ToUpper(method)]; ok {
		return Match{Kind: Found, Route: route}
	}

	return Match{Kind: MethodNotAllowed, Allowed: r.allowed[path]}
}

// slashAlternative toggles one trailing slash and reports whether that path is routed.
func (r *Router) slashAlternative(path string) (string, bool) {
	if path == "/" {
		return "", false
	}

	var alt string
	if strings.HasSuffix(path, "/") {
		alt = strings.TrimSuffix(path, "/")
	} else {
		alt = path + "/"
	}

	if _, ok := r.routes[alt]; ok {
		return alt, true
	}
	return "", false
}

// allowedMethods normalizes one route's methods into a sorted Allow list.
// GET implies HEAD.
func allowedMethods(methods []string) []string {
	seen := make(map[string]struct{}, len(methods)+1)
	for _, m := range methods {
		method := strings.ToUpper(strings.TrimSpace(m))
		seen[method] = struct{}{}
		if method == models.METHOD_GET {
			seen[models.METHOD_HEAD] = struct{}{}
		}
	}

	allowed := make([]string, 0, len(seen))
	for m := range seen {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	return allowed
}
