package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/gallery"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/passcode"
	"github.com/antibyte/calcvault/pkg/shared"
	"github.com/antibyte/calcvault/pkg/terminal"
	tlsmanager "github.com/antibyte/calcvault/pkg/tls"
	"github.com/antibyte/calcvault/pkg/ui"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	Long: `Serves the JSON API, the gallery and the keypad WebSocket on /ws.
With [TLS] enable_tls the server listens on https_port and, when needed,
answers ACME challenges and redirects on http_port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, done := startSpinner("Starting server...", out)

		svc, err := openServices()
		if err != nil {
			s.FinalMSG = failure("Could not open database")
			done()
			return err
		}
		defer svc.Close()

		tlsManager, err := tlsmanager.NewTLSManager()
		if err != nil {
			s.FinalMSG = failure("TLS setup failed")
			done()
			return fmt.Errorf("TLS manager initialization failed: %w", err)
		}

		mux := newServeMux(svc)
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		servers, listeners, err := listen(mux, tlsManager)
		if err != nil {
			s.FinalMSG = failure("Could not listen")
			done()
			return err
		}
		for i, l := range listeners {
			Console.Infof("Listening on %s", l.Addr())
			logger.Info(logger.AreaGeneral, "Listening on %s", l.Addr())
			if i == len(listeners)-1 {
				s.FinalMSG = success("Listening on " + ui.Highlight.Sprint(l.Addr().String()))
			}
		}
		done()

		return serve(ctx, servers, listeners)
	},
}

// newServeMux mounts every HTTP surface of the server.
func newServeMux(svc *services) *http.ServeMux {
	mux := http.NewServeMux()

	auth.NewHandlers(svc.auth).Register(mux)
	passcode.NewHandler(svc.passcodes).Register(mux)
	gallery.NewHandlers(svc.gallery).Register(mux)

	keypadHandler := terminal.NewKeypadHandler(svc.passcodes.SourceFor)
	mux.HandleFunc("/ws", keypadHandler.HandleWebSocket)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := svc.db.Ping(ctx); err != nil {
			shared.RespondWithError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		shared.RespondWithData(w, http.StatusOK, "ok", map[string]int{"clients": keypadHandler.ClientCount()})
	})
	return mux
}

func newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:      handler,
		ReadTimeout:  configuration.GetDuration("Server", "read_timeout", 15*time.Second),
		WriteTimeout: configuration.GetDuration("Server", "write_timeout", 30*time.Second),
		IdleTimeout:  configuration.GetDuration("Server", "idle_timeout", 60*time.Second),
	}
}

// listen binds the plain and, with TLS, the secure listener.
func listen(mux *http.ServeMux, tm *tlsmanager.TLSManager) ([]*http.Server, []net.Listener, error) {
	host := configuration.GetString("Server", "listen_address", "")

	if !tm.IsEnabled() {
		l, err := net.Listen("tcp", net.JoinHostPort(host, tm.GetHTTPPort()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen on port %s: %w", tm.GetHTTPPort(), err)
		}
		return []*http.Server{newHTTPServer(mux)}, []net.Listener{l}, nil
	}

	var servers []*http.Server
	var listeners []net.Listener
	if tm.NeedsHTTPServer() {
		l, err := net.Listen("tcp", net.JoinHostPort(host, tm.GetHTTPPort()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen on port %s: %w", tm.GetHTTPPort(), err)
		}
		servers = append(servers, newHTTPServer(tm.HTTPHandler()))
		listeners = append(listeners, l)
	}

	secure := newHTTPServer(mux)
	secure.TLSConfig = tm.GetTLSConfig()
	l, err := net.Listen("tcp", net.JoinHostPort(host, tm.GetHTTPSPort()))
	if err != nil {
		for _, open := range listeners {
			open.Close()
		}
		return nil, nil, fmt.Errorf("failed to listen on port %s: %w", tm.GetHTTPSPort(), err)
	}
	servers = append(servers, secure)
	listeners = append(listeners, l)
	return servers, listeners, nil
}

// serve runs all servers until ctx ends or one of them fails, then shuts
// the others down.
func serve(ctx context.Context, servers []*http.Server, listeners []net.Listener) error {
	errs := make(chan error, len(servers))
	for i := range servers {
		srv, l := servers[i], listeners[i]
		go func() {
			var err error
			if srv.TLSConfig != nil {
				err = srv.ServeTLS(l, "", "")
			} else {
				err = srv.Serve(l)
			}
			if !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info(logger.AreaGeneral, "Shutdown requested")
	case runErr = <-errs:
		logger.Error(logger.AreaGeneral, "Server stopped: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(logger.AreaGeneral, "Shutdown: %v", err)
		}
	}
	return runErr
}
