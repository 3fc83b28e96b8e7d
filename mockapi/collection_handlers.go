package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

type itemBody struct {
	CourseID string `json:"courseId"`
}

// itemView is a stored entry with its course expanded.
type itemView struct {
	ID      string    `json:"_id"`
	Course  Course    `json:"course"`
	AddedAt time.Time `json:"addedAt"`
}

type cartView struct {
	Items     []itemView `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
	User      string     `json:"user"`
}

// expand joins entries to the catalog, skipping courses since withdrawn.
func (s *Server) expand(entries []entry) []itemView {
	views := make([]itemView, 0, len(entries))
	for _, e := range entries {
		course, ok := s.catalog.Get(e.CourseID)
		if !ok {
			continue
		}
		views = append(views, itemView{ID: e.ID, Course: course, AddedAt: e.AddedAt})
	}
	return views
}

func (s *Server) cartView(userID string) cartView {
	items := s.expand(s.carts.List(userID))
	var total float64
	for _, item := range items {
		total += item.Course.Price
	}
	return cartView{Items: items, Total: total, ItemCount: len(items), User: userID}
}

// readCourseID decodes the body of an add request and checks the course exists.
func (s *Server) readCourseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body itemBody
	if err := decodeJSON(r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	courseID := strings.TrimSpace(body.CourseID)
	if courseID == "" {
		writeFailure(w, http.StatusBadRequest, "Course ID is required")
		return "", false
	}
	if _, ok := s.catalog.Get(courseID); !ok {
		writeFailure(w, http.StatusNotFound, "Course not found")
		return "", false
	}
	return courseID, true
}

func (s *Server) GetCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, s.cartView(userIDFrom(r)), "")
	}
}

// AddToCartHandler responds with the whole cart.
func (s *Server) AddToCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := s.readCourseID(w, r)
		if !ok {
			return
		}
		userID := userIDFrom(r)
		if _, err := s.carts.Add(userID, courseID, s.nowTime()); err != nil {
			if errors.Is(err, errAlreadyPresent) {
				writeFailure(w, http.StatusConflict, "Course already in cart")
				return
			}
			writeFailure(w, http.StatusInternalServerError, "Failed to add to cart")
			return
		}
		writeSuccess(w, http.StatusOK, s.cartView(userID), "Course added to cart")
	}
}

func (s *Server) RemoveFromCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r)
		if err := s.carts.Remove(userID, r.PathValue("courseId")); err != nil {
			writeFailure(w, http.StatusNotFound, "Course not found in cart")
			return
		}
		writeSuccess(w, http.StatusOK, s.cartView(userID), "Course removed from cart")
	}
}

func (s *Server) ClearCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.carts.Clear(userIDFrom(r))
		writeSuccess(w, http.StatusOK, nil, "Cart cleared")
	}
}

// GetWishlistHandler responds with a bare array of items under data.
func (s *Server) GetWishlistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, s.expand(s.wishlists.List(userIDFrom(r))), "")
	}
}

// AddToWishlistHandler responds with only the added item.
func (s *Server) AddToWishlistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := s.readCourseID(w, r)
		if !ok {
			return
		}
		added, err := s.wishlists.Add(userIDFrom(r), courseID, s.nowTime())
		if err != nil {
			if errors.Is(err, errAlreadyPresent) {
				writeFailure(w, http.StatusConflict, "Course already in wishlist")
				return
			}
			writeFailure(w, http.StatusInternalServerError, "Failed to add to wishlist")
			return
		}
		course, _ := s.catalog.Get(courseID)
		writeSuccess(w, http.StatusCreated, itemView{ID: added.ID, Course: course, AddedAt: added.AddedAt}, "Course added to wishlist")
	}
}

func (s *Server) RemoveFromWishlistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.wishlists.Remove(userIDFrom(r), r.PathValue("courseId")); err != nil {
			writeFailure(w, http.StatusNotFound, "Course not found in wishlist")
			return
		}
		writeSuccess(w, http.StatusOK, nil, "Course removed from wishlist")
	}
}
