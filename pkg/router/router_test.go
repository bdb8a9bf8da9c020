package router

import (
	"reflect"
	"testing"
	"time"

	"targetapi/pkg/models"
)

func defaultRoutes() []models.RouteConfig {
	return []models.RouteConfig{
		{Name: "root-get", Path: "/", Methods: []string{"GET"}},
		{Name: "root-post", Path: "/", Methods: []string{"POST"}},
		{Name: "plans", Path: "/plans", Methods: []string{"post"}, Delay: time.Second},
	}
}

func mustRouter(t *testing.T, routes []models.RouteConfig) *Router {
	r, err := NewRouter(routes)
	if err != nil {
		t.Fatalf("Failed to build router: %v", err)
	}
	return r
}

func TestNewRouter_InvalidPath(t *testing.T) {
	_, err := NewRouter([]models.RouteConfig{{Name: "bad", Path: "plans", Methods: []string{"POST"}}})
	if err == nil {
		t.Error("Expected error for path without leading slash")
	}
}

func TestNewRouter_NoMethods(t *testing.T) {
	_, err := NewRouter([]models.RouteConfig{{Name: "bad", Path: "/"}})
	if err == nil {
		t.Error("Expected error for route without methods")
	}
}

func TestNewRouter_Duplicate(t *testing.T) {
	_, err := NewRouter([]models.RouteConfig{
		{Name: "a", Path: "/", Methods: []string{"GET"}},
		{Name: "b", Path: "/", Methods: []string{"get"}},
	})
	if err == nil {
		t.Error("Expected error for duplicate method on the same path")
	}
}

func TestRouter_Found(t *testing.T) {
	r := mustRouter(t, defaultRoutes())

	cases := []struct {
		method string
		path   string
		name   string
	}{
		{"GET", "/", "root-get"},
		{"HEAD", "/", "root-get"},
		{"POST", "/", "root-post"},
		{"post", "/plans", "plans"},
	}

	for _, c := range cases {
		m := r.Match(c.method, c.path)
		if m.Kind != Found {
			t.Errorf("%s %s: expected Found, got %v", c.method, c.path, m.Kind)
			continue
		}
		if m.Route.Name != c.name {
			t.Errorf("%s %s: expected route %s, got %s", c.method, c.path, c.name, m.Route.Name)
		}
	}

	if m := r.Match("POST", "/plans"); m.Route.Delay != time.Second {
		t.Errorf("Expected plans delay of 1s, got %v", m.Route.Delay)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := mustRouter(t, defaultRoutes())

	m := r.Match("DELETE", "/")
	if m.Kind != MethodNotAllowed {
		t.Fatalf("Expected MethodNotAllowed, got %v", m.Kind)
	}
	// Only the first route declared for "/" is reported.
	if !reflect.DeepEqual(m.Allowed, []string{"GET", "HEAD"}) {
		t.Errorf("Unexpected allowed methods: %v", m.Allowed)
	}

	m = r.Match("GET", "/plans")
	if m.Kind != MethodNotAllowed {
		t.Fatalf("Expected MethodNotAllowed for GET /plans, got %v", m.Kind)
	}
	if !reflect.DeepEqual(m.Allowed, []string{"POST"}) {
		t.Errorf("Unexpected allowed methods: %v", m.Allowed)
	}
}

func TestRouter_AllowListsFirstDeclaredRoute(t *testing.T) {
	r := mustRouter(t, []models.RouteConfig{
		{Name: "hook", Path: "/hook", Methods: []string{"put", "POST"}},
		{Name: "hook-read", Path: "/hook", Methods: []string{"GET"}},
	})

	m := r.Match("DELETE", "/hook")
	if m.Kind != MethodNotAllowed {
		t.Fatalf("Expected MethodNotAllowed, got %v", m.Kind)
	}
	if !reflect.DeepEqual(m.Allowed, []string{"POST", "PUT"}) {
		t.Errorf("Expected the first route's methods only, got %v", m.Allowed)
	}

	if m := r.Match("HEAD", "/hook"); m.Kind != Found || m.Route.Name != "hook-read" {
		t.Errorf("Later routes should still match, got %v", m.Kind)
	}
}

func TestRouter_ExplicitHeadWins(t *testing.T) {
	r := mustRouter(t, []models.RouteConfig{
		{Name: "get", Path: "/", Methods: []string{"GET"}},
		{Name: "head", Path: "/", Methods: []string{"HEAD"}},
	})

	if m := r.Match("HEAD", "/"); m.Route.Name != "head" {
		t.Errorf("Expected explicit HEAD route, got %s", m.Route.Name)
	}
}

func TestRouter_Redirect(t *testing.T) {
	r := mustRouter(t, defaultRoutes())

	m := r.Match("POST", "/plans/")
	if m.Kind != Redirect {
		t.Fatalf("Expected Redirect, got %v", m.Kind)
	}
	if m.RedirectPath != "/plans" {
		t.Errorf("Expected redirect to /plans, got %s", m.RedirectPath)
	}
}

func TestRouter_NotFound(t *testing.T) {
	r := mustRouter(t, defaultRoutes())

	for _, path := range []string{"/missing", "/plans/extra", "/settings"} {
		if m := r.Match("GET", path); m.Kind != NotFound {
			t.Errorf("%s: expected NotFound, got %v", path, m.Kind)
		}
	}
}
