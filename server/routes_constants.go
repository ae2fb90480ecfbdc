package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin       = "/login"
	RouteAuthLogin   = "/auth/login"
	RouteAuthLogout  = "/auth/logout"
	RouteAuthSession = "/auth/session"

	// Auth Routes - Password Management
	RouteChangePassword = "/auth/change-password"

	// Profile
	RouteProfile     = "/profile"
	RouteProfileLogo = "/profile/logo"

	// Dashboards
	RouteDashboard  = "/dashboard"
	RouteSuperAdmin = "/super-admin"
	RouteDealer     = "/dealer"
	RouteCustomer   = "/customer"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"

	RouteHealth = "/healthz"
)
