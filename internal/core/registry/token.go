package registry

import (
	"context"
	"sync"
)

// Token is a one-shot cancellation handle shared between the owner of a
// background task set and the tasks themselves. Cancel is idempotent.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewToken() *Token {
	return NewTokenContext(context.Background())
}

// NewTokenContext returns a token that is also cancelled when parent is done.
func NewTokenContext(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

func (t *Token) Cancel() { t.cancel() }

func (t *Token) Cancelled() bool { return t.ctx.Err() != nil }

func (t *Token) Done() <-chan struct{} { return t.ctx.Done() }

// Context is cancelled together with the token.
func (t *Token) Context() context.Context { return t.ctx }

// Go runs fn in a goroutine tracked by Wait.
func (t *Token) Go(fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(t.ctx)
	}()
}

// Wait blocks until every function started with Go has returned.
func (t *Token) Wait() { t.wg.Wait() }
