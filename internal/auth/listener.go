package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"spotify-cli/internal/server"
	"spotify-cli/internal/shared"
)

// Listener hosts the single-use callback responder on a bound socket.
//
// Constructed around a listener from [Allocate]; [Listener.AwaitCallback]
// serves HTTP until the first redirect arrives, the timeout elapses, or the
// context is cancelled, then shuts the server down and releases the socket.
type Listener struct {
	lis     net.Listener
	handler *server.CallbackHandler
	srv     *http.Server
	logger  *log.Logger

	mu   sync.Mutex
	used bool
}

// NewListener creates a Listener on the given socket expecting the given
// state nonce in the redirect.
func NewListener(lis net.Listener, state string, logger *log.Logger) *Listener {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	handler := server.NewCallbackHandler(state)
	router := server.NewBasicRouter()
	router.Use(server.Logging(logger))
	router.Handler(handler)

	return &Listener{
		lis:     lis,
		handler: handler,
		srv:     &http.Server{Handler: router},
		logger:  shared.WithLogger(logger, "component", "listener"),
	}
}

// Addr returns the bound address of the underlying socket.
func (l *Listener) Addr() net.Addr {
	return l.lis.Addr()
}

// AwaitCallback blocks until the callback arrives, the timeout elapses, or
// ctx is cancelled. The socket is closed before returning on every path, so
// the port is immediately rebindable.
//
// The listener is single use; a second call returns an error without
// touching the network.
func (l *Listener) AwaitCallback(ctx context.Context, timeout time.Duration) (server.CallbackResult, error) {
	l.mu.Lock()
	if l.used {
		l.mu.Unlock()
		return server.CallbackResult{}, fmt.Errorf("%w: listener already consumed", shared.ErrFlowFinished)
	}
	l.used = true
	l.mu.Unlock()

	serverErrors := make(chan error, 1)
	go func() {
		l.logger.Debug("serving callback listener", "addr", l.lis.Addr().String())
		if err := l.srv.Serve(l.lis); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.CallbackResult
	var waitErr error

	select {
	case result = <-l.handler.Result():
	case err := <-serverErrors:
		waitErr = fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		waitErr = fmt.Errorf("%w: no authorization callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		waitErr = fmt.Errorf("authorization cancelled: %w", ctx.Err())
	}

	l.close()

	if waitErr != nil {
		return server.CallbackResult{}, waitErr
	}

	return result, nil
}

// close shuts the HTTP server down gracefully and force-closes the socket.
func (l *Listener) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.srv.Shutdown(shutdownCtx); err != nil {
		l.logger.Warn("error shutting down callback server", "error", err)
	}

	// Shutdown closes the listener already; closing again covers the path
	// where Serve never ran. The double close error is expected.
	_ = l.lis.Close()
}
