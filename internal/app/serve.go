package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Serve runs srv on ln and starts the agent. When ctx is done it stops the agent,
// then waits for in-flight requests (bounded by Config.HTTPTimeout) before it
// returns. Close must only be called after Serve has returned.
func (a *App) Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grace := a.Config.HTTPTimeout
	if grace <= 0 {
		grace = 15 * time.Second
	}
	if a.Agent != nil {
		a.Agent.Start()
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), grace)
		defer stop()
		if a.Agent != nil {
			a.Agent.Stop(shutdownCtx)
		}
		done <- srv.Shutdown(shutdownCtx)
	}()

	a.Log.Info("serving", slog.String("addr", ln.Addr().String()))
	err := srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return errors.Join(err, <-done)
	}
	if err := <-done; err != nil {
		return err
	}
	a.Log.Info("drained")
	return nil
}
