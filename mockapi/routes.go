package mockapi

import "github.com/jrsteele09/go-storefront-client/transport"

// Route patterns not already named by the client's path constants
const (
	RouteCourse       = transport.PathCourses + "/{courseId}"
	RouteCartItem     = transport.PathCart + "/{courseId}"
	RouteWishlistItem = transport.PathWishlist + "/{courseId}"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+transport.PathHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// AUTH
	s.RegisterRouteFunc("POST "+transport.PathRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+transport.PathLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+transport.PathRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+transport.PathLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+transport.PathProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireAuth())...))

	// CATALOG
	s.RegisterRouteFunc("GET "+transport.PathCourses, ChainMiddleware(s.CoursesHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCourse, ChainMiddleware(s.CourseHandler(), s.APIMiddleware()...))

	// CART
	s.RegisterRouteFunc("GET "+transport.PathCart, ChainMiddleware(s.GetCartHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+transport.PathCart, ChainMiddleware(s.AddToCartHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("DELETE "+transport.PathCartClear, ChainMiddleware(s.ClearCartHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("DELETE "+RouteCartItem, ChainMiddleware(s.RemoveFromCartHandler(), s.APIMiddleware(s.RequireAuth())...))

	// WISHLIST
	s.RegisterRouteFunc("GET "+transport.PathWishlist, ChainMiddleware(s.GetWishlistHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+transport.PathWishlist, ChainMiddleware(s.AddToWishlistHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("DELETE "+RouteWishlistItem, ChainMiddleware(s.RemoveFromWishlistHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Anything else gets the HTML error page a misrouted proxy would serve
	s.RegisterRouteFunc("/", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
}
