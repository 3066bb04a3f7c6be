package router

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultTableResolvesCatalogue(t *testing.T) {
	table := MustDefaultTable()

	cases := []struct {
		path string
		name string
		auth bool
	}{
		{"/dashboard", RouteDashboard, true},
		{"/operator-screen", RouteOperatorScreen, true},
		{"/production-runs", RouteProductionRuns, true},
		{"/account-settings", "account-settings", true},
		{"/login", RouteLogin, false},
		{"/logout", RouteLogout, false},
		{"/register", "register", false},
		{"/no/such/page", "error", false},
	}
	for _, tc := range cases {
		r, err := table.Resolve(tc.path)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.path, err)
		}
		if r.Name != tc.name {
			t.Fatalf("Resolve(%q) name = %q, want %q", tc.path, r.Name, tc.name)
		}
		if r.Meta.RequiresAuth() != tc.auth {
			t.Fatalf("Resolve(%q) requires auth = %v, want %v", tc.path, r.Meta.RequiresAuth(), tc.auth)
		}
	}
}

func TestRootRedirectsToDashboard(t *testing.T) {
	r, err := MustDefaultTable().Resolve("/")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !r.Is(RouteDashboard) {
		t.Fatalf("expected dashboard, got %q", r.Name)
	}
}

func TestCatchAllCapturesRemainder(t *testing.T) {
	r, err := MustDefaultTable().Resolve("/a/b/c?x=1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Params["pathMatch"] != "a/b/c" {
		t.Fatalf("unexpected pathMatch %q", r.Params["pathMatch"])
	}
	if r.FullPath() != "/a/b/c?x=1" {
		t.Fatalf("unexpected full path %q", r.FullPath())
	}
}

func TestMetaInheritanceChildWins(t *testing.T) {
	table, err := NewTable([]RouteRecord{{
		Path: "/admin",
		Meta: Meta{Middleware: MiddlewareAuth, PageTitle: "Admin"},
		Children: []RouteRecord{
			{Path: "users", Name: "users"},
			{Path: "help", Name: "help", Meta: Meta{Middleware: "none", PageTitle: "Help"}},
		},
	}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	users, err := table.ResolveName("users", nil)
	if err != nil {
		t.Fatalf("ResolveName users: %v", err)
	}
	if !users.Meta.RequiresAuth() || users.Meta.PageTitle != "Admin" {
		t.Fatalf("expected inherited meta, got %+v", users.Meta)
	}
	if users.Path != "/admin/users" {
		t.Fatalf("unexpected path %q", users.Path)
	}

	help, err := table.ResolveName("help", nil)
	if err != nil {
		t.Fatalf("ResolveName help: %v", err)
	}
	if help.Meta.RequiresAuth() || help.Meta.PageTitle != "Help" {
		t.Fatalf("expected child meta to win, got %+v", help.Meta)
	}
}

func TestParamsAreCapturedAndBuilt(t *testing.T) {
	table, err := NewTable([]RouteRecord{
		{Path: "/shipments/:id", Name: "shipment"},
		{Path: "/shipments/new", Name: "shipment-new"},
		{Path: "/reports/:kind?", Name: "reports"},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	r, err := table.Resolve("/shipments/42")
	if err != nil || r.Name != "shipment" || r.Params["id"] != "42" {
		t.Fatalf("unexpected resolve: %+v, %v", r, err)
	}
	r, err = table.Resolve("/shipments/new")
	if err != nil || r.Name != "shipment-new" {
		t.Fatalf("static segment must outrank param: %+v, %v", r, err)
	}
	r, err = table.Resolve("/reports")
	if err != nil || r.Name != "reports" {
		t.Fatalf("optional param must match empty: %+v, %v", r, err)
	}

	built, err := table.ResolveName("shipment", map[string]string{"id": "7"})
	if err != nil || built.Path != "/shipments/7" {
		t.Fatalf("unexpected build: %+v, %v", built, err)
	}
	if _, err := table.ResolveName("shipment", nil); !errors.Is(err, ErrMissingParam) {
		t.Fatalf("expected ErrMissingParam, got %v", err)
	}
}

func TestNewTableRejectsDuplicatesAndBadPatterns(t *testing.T) {
	_, err := NewTable([]RouteRecord{{Path: "/a", Name: "x"}, {Path: "/b", Name: "x"}})
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for duplicate, got %v", err)
	}
	_, err = NewTable([]RouteRecord{{Path: "/:rest(.*)*/tail", Name: "bad"}})
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for catch-all, got %v", err)
	}
	_, err = NewTable(nil)
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for empty table, got %v", err)
	}
}

func TestUnknownLocationAndName(t *testing.T) {
	table, err := NewTable([]RouteRecord{{Path: "/only", Name: "only"}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := table.Resolve("/other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := table.ResolveName("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRedirectLoop(t *testing.T) {
	table, err := NewTable([]RouteRecord{
		{Path: "/a", Redirect: "/b"},
		{Path: "/b", Redirect: "/a"},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := table.Resolve("/a"); !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("expected ErrRedirectLoop, got %v", err)
	}
}

func TestLoadTableYAML(t *testing.T) {
	doc := `
routes:
  - path: /
    meta: {middleware: auth}
    children:
      - path: dashboard
        name: dashboard
        meta:
          pageTitle: Dashboard
          breadcrumbs:
            - {label: Dashboard, link: /dashboard}
  - path: /login
    name: login
    meta: {middleware: none, pageTitle: Login}
`
	table, err := LoadTable(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	r, err := table.Resolve("/dashboard")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !r.Meta.RequiresAuth() || r.Meta.PageTitle != "Dashboard" || len(r.Meta.Breadcrumbs) != 1 {
		t.Fatalf("unexpected meta %+v", r.Meta)
	}
	login, err := table.Resolve("/login")
	if err != nil || login.Meta.RequiresAuth() {
		t.Fatalf("unexpected login route %+v, %v", login, err)
	}
	if got := table.Names(); len(got) != 2 || got[0] != "dashboard" || got[1] != "login" {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestLoadTableRejectsUnknownKeysAndEmpty(t *testing.T) {
	if _, err := LoadTable(strings.NewReader("routes:\n  - path: /x\n    nam: typo\n")); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for unknown key, got %v", err)
	}
	if _, err := LoadTable(strings.NewReader("")); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for empty document, got %v", err)
	}
}

func TestDecisionString(t *testing.T) {
	if RedirectTo("login").String() != "redirect(login)" || Block().String() != "block" || Proceed().String() != "proceed" {
		t.Fatal("unexpected decision strings")
	}
}
