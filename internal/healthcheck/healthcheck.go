// Package healthcheck runs the optional liveness HTTP listener.
package healthcheck

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// NormalizeListen trims the configured listen address; an empty result
// disables the listener. A bare port like "8086" becomes ":8086".
func NormalizeListen(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

// StartServer serves GET /healthz on addr until the returned server is
// shut down.
func StartServer(ctx context.Context, log *slog.Logger, addr, component string) (*http.Server, error) {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		log.Info("health_server_start", "addr", addr, "component", component)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("health_server_error", "addr", addr, "error", err.Error())
		}
	}()
	return srv, nil
}
