package collections

import (
	"context"

	"github.com/jrsteele09/go-storefront-client/transport"
)

// Wishlist is the signed-in user's saved courses.
type Wishlist struct {
	*collection
}

func NewWishlist(api transport.Doer, gate SessionGate) (*Wishlist, error) {
	c, err := newCollection(kind{name: "wishlist", path: transport.PathWishlist}, api, gate)
	if err != nil {
		return nil, err
	}
	return &Wishlist{collection: c}, nil
}

// Toggle removes courseID when the local state holds it and adds it
// otherwise. added reports which happened.
func (w *Wishlist) Toggle(ctx context.Context, courseID string) (state State, added bool, err error) {
	if w.Contains(courseID) {
		state, err = w.Remove(ctx, courseID)
		return state, false, err
	}
	state, err = w.Add(ctx, courseID)
	return state, true, err
}
