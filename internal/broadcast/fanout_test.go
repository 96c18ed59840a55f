package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PxPatel/matching-service/internal/types"
)

type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) Publish(context.Context, *types.Trade) error {
	p.calls++
	return p.err
}

func TestFanoutReachesEverySink(t *testing.T) {
	failing := &countingPublisher{err: errors.New("down")}
	healthy := &countingPublisher{}

	err := Fanout{failing, healthy}.Publish(context.Background(), &types.Trade{Symbol: "X"})

	assert.ErrorContains(t, err, "down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, healthy.calls)
}

func TestEmptyFanout(t *testing.T) {
	assert.NoError(t, Fanout(nil).Publish(context.Background(), &types.Trade{}))
}
