package infra

import (
	"context"
	"sync"
)

// ChanPool é um semáforo sobre channel bufferizado: len(sem) é o número de vagas em uso.
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

// Acquire implementa domain.SlotPool.
func (p *ChanPool) Acquire(ctx context.Context) (func(), error) {
	// vaga livre ganha de ctx já cancelado: select escolheria ao acaso
	select {
	case p.sem <- struct{}{}:
		return p.releaseOnce(), nil
	default:
	}

	select {
	case p.sem <- struct{}{}:
		return p.releaseOnce(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ChanPool) releaseOnce() func() {
	var once sync.Once
	return func() { once.Do(func() { <-p.sem }) }
}

func (p *ChanPool) InUse() int { return len(p.sem) }

func (p *ChanPool) Cap() int { return cap(p.sem) }
