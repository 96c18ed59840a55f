package broadcast

import (
	"context"
	"errors"

	"github.com/PxPatel/matching-service/internal/types"
)

// Publisher is implemented by every trade sink in this package
type Publisher interface {
	Publish(ctx context.Context, trade *types.Trade) error
}

// Fanout publishes each trade to every sink in order. A failing sink does not stop
// the others; all failures are returned joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, trade *types.Trade) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, trade); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
