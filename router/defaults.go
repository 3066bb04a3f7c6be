package router

// Route names the navigation guard relies on.
const (
	RouteDashboard      = "dashboard"
	RouteLogin          = "login"
	RouteLogout         = "logout"
	RouteOperatorScreen = "operator-screen"
	RouteProductionRuns = "production-runs"
)

func page(path, name, title string) RouteRecord {
	return RouteRecord{
		Path: path,
		Name: name,
		Meta: Meta{
			PageTitle:   title,
			Breadcrumbs: []Breadcrumb{{Label: title, Link: "/" + path}},
		},
	}
}

// DefaultRoutes returns the warehouse route catalogue: an authenticated layout for the
// working pages and a blank layout for login, registration and errors.
func DefaultRoutes() []RouteRecord {
	return []RouteRecord{
		{Path: "/", Redirect: "/dashboard"},
		{
			Path: "/",
			Meta: Meta{Middleware: MiddlewareAuth},
			Children: []RouteRecord{
				page("dashboard", RouteDashboard, "Dashboard"),
				page("readers", "readers", "Readers"),
				page("rfid-tags", "rfid-tags", "RFID Tags"),
				page("pallet-registration", "pallet-registration", "Pallet Registration"),
				page("shipments", "shipments", "Shipments"),
				page("inventories", "inventories", "Inventories"),
				page("batch-picking", "batch-picking", "Batch Picking"),
				page("goods-receipt", "goods-receipt", "Goods Receipt"),
				page("production-runs", RouteProductionRuns, "Production Runs"),
				page("operator-screen", RouteOperatorScreen, "Operator Screen"),
				{Path: "account-settings", Name: "account-settings"},
			},
		},
		{
			Path: "/",
			Children: []RouteRecord{
				{Path: "login", Name: RouteLogin, Meta: Meta{PageTitle: "Login"}},
				{Path: "logout", Name: RouteLogout, Meta: Meta{PageTitle: "Logout"}},
				{Path: "register", Name: "register"},
				{Path: "/:pathMatch(.*)*", Name: "error", Meta: Meta{PageTitle: "Not Found"}},
			},
		},
	}
}

// MustDefaultTable compiles [DefaultRoutes]. It panics only if the built-in catalogue
// is malformed.
func MustDefaultTable() *Table {
	t, err := NewTable(DefaultRoutes())
	if err != nil {
		panic(err)
	}
	return t
}
