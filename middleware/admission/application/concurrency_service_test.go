package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingPool struct{}

func (blockingPool) Acquire(ctx context.Context) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingPool) InUse() int { return 1 }
func (blockingPool) Cap() int   { return 1 }

type immediatePool struct {
	acquired int
}

func (p *immediatePool) Acquire(ctx context.Context) (func(), error) {
	p.acquired++
	return func() {}, nil
}
func (p *immediatePool) InUse() int { return 0 }
func (p *immediatePool) Cap() int   { return 1 }

func TestConcurrencyService_Acquire_AllowsWhenNoPool(t *testing.T) {
	release, err := ConcurrencyService{}.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestConcurrencyService_Acquire_TimeoutIsErrNoSlot(t *testing.T) {
	svc := ConcurrencyService{Pool: blockingPool{}, AcquireTimeout: 10 * time.Millisecond}

	_, err := svc.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestConcurrencyService_Acquire_ClientCancellationIsNotErrNoSlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConcurrencyService{Pool: blockingPool{}, AcquireTimeout: time.Second}.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNoSlot)
}

func TestConcurrencyService_Acquire_NoTimeoutDelegatesToPool(t *testing.T) {
	pool := &immediatePool{}
	_, err := ConcurrencyService{Pool: pool}.Acquire(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, pool.acquired)
}
