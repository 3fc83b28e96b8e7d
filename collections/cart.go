package collections

import (
	"context"

	"github.com/jrsteele09/go-storefront-client/transport"
)

// Cart is the signed-in user's shopping cart.
type Cart struct {
	*collection
}

func NewCart(api transport.Doer, gate SessionGate) (*Cart, error) {
	c, err := newCollection(kind{
		name:      "cart",
		path:      transport.PathCart,
		clearPath: transport.PathCartClear,
		hasTotal:  true,
	}, api, gate)
	if err != nil {
		return nil, err
	}
	return &Cart{collection: c}, nil
}

// Clear empties the cart on the server and locally.
func (c *Cart) Clear(ctx context.Context) (State, error) {
	return c.clear(ctx)
}
