package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Local is an HTTP server bound to a local address.
type Local struct {
	srv    *http.Server
	ln     net.Listener
	errs   chan error
	logger *log.Logger
}

// Start binds addr and serves handler in the background.
//
// The address is bound before Start returns, so the browser can be opened right away.
func Start(addr string, handler http.Handler, logger *log.Logger) (*Local, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Local{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:     ln,
		errs:   make(chan error, 1),
		logger: logger,
	}

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.errs <- err
		}
		close(l.errs)
	}()

	logger.Debug("callback server listening", "addr", ln.Addr().String())
	return l, nil
}

// Addr returns the bound address.
func (l *Local) Addr() string {
	return l.ln.Addr().String()
}

// Errors receives a serve error, if one happens, and is closed when serving stops.
func (l *Local) Errors() <-chan error {
	return l.errs
}

// Shutdown stops the server and waits for in-flight requests.
func (l *Local) Shutdown(ctx context.Context) error {
	err := l.srv.Shutdown(ctx)
	for range l.errs {
	}
	return err
}
