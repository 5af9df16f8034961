package portproxy

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/snjax/nook/internal/core/registry"
)

const acceptBackoff = 50 * time.Millisecond

// serve accepts on ln until tok is cancelled and pipes each connection to
// target. Cancelling tok closes the listener and every open connection.
func (e *Engine) serve(tok *registry.Token, ln net.Listener, podID, target string) {
	tok.Go(func(ctx context.Context) {
		<-ctx.Done()
		ln.Close()
	})
	tok.Go(func(ctx context.Context) {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				e.logger.Warn("accept", "pod", podID, "target", target, "err", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(acceptBackoff):
				}
				continue
			}
			tok.Go(func(ctx context.Context) { e.pipe(ctx, conn, podID, target) })
		}
	})
}

func (e *Engine) pipe(ctx context.Context, client net.Conn, podID, target string) {
	defer client.Close()

	var d net.Dialer
	upstream, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		e.logger.Debug("dial container", "pod", podID, "target", target, "err", err)
		return
	}
	defer upstream.Close()

	done := make(chan struct{}, 2)
	go copyHalf(upstream, client, done)
	go copyHalf(client, upstream, done)

	for i := 0; i < 2; i++ {
		select {
		case <-ctx.Done():
			return
		case <-done:
		}
	}
}

type closeWriter interface {
	CloseWrite() error
}

func copyHalf(dst, src net.Conn, done chan<- struct{}) {
	_, _ = io.Copy(dst, src)
	if cw, ok := dst.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
	done <- struct{}{}
}
