package transport

import "net/url"

// API route constants
const (
	PathHealth = "/health"

	// Auth
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathRefresh  = "/api/auth/refresh"
	PathLogout   = "/api/auth/logout"
	PathProfile  = "/api/auth/profile"

	// Cart
	PathCart      = "/api/cart"
	PathCartClear = "/api/cart/clear"

	// Wishlist
	PathWishlist = "/api/wishlist"

	// Catalog
	PathCourses = "/api/courses"
)

// ItemPath returns base + "/" + the escaped course id.
func ItemPath(base, courseID string) string {
	return base + "/" + url.PathEscape(courseID)
}
