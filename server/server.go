// Package server is the HTTP control surface. The route set depends on the
// network mode chosen at boot.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"doorbell-core/config"
	"doorbell-core/device"
	"doorbell-core/handlers"
	"doorbell-core/middleware"
	"doorbell-core/session"
	"doorbell-core/storage"
	"doorbell-core/utils"
	"doorbell-core/wifi"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the routes need. Guard, Bell and Bundle are only
// used by the station route set.
type Deps struct {
	Config    *config.Config
	Store     storage.Store
	Restarter device.Restarter
	Network   handlers.NetworkStatus
	Guard     *session.Guard
	Bell      *device.Bell
	Bundle    fs.FS
}

// Routes returns the handler for mode wrapped in the common middleware.
func Routes(mode wifi.Mode, d Deps) http.Handler {
	var mux *http.ServeMux
	if mode == wifi.ModeAP {
		mux = apRoutes(d)
	} else {
		mux = staRoutes(d)
	}

	cors := middleware.NewCORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowedMethods, d.Config.CORSAllowedHeaders)
	return middleware.RequestID(middleware.Logging(middleware.Recover(cors.Handle(mux))))
}

func apRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	health := handlers.NewHealthHandler(d.Network)
	setup := handlers.NewWiFiConfigHandler(d.Store, d.Restarter, d.Config.RestartDelay)

	mux.Handle("/health", middleware.RequireMethods(http.MethodGet)(http.HandlerFunc(health.Health)))
	mux.Handle("/wifi_config", middleware.RequireMethods(http.MethodPost)(http.HandlerFunc(setup.Submit)))
	mux.Handle("/", middleware.RequireMethods(http.MethodGet)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			utils.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		setup.Form(w, r)
	})))
	return mux
}

func staRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	health := handlers.NewHealthHandler(d.Network)
	auth := handlers.NewAuthHandler(d.Guard)
	mode := handlers.NewModeHandler(d.Store)
	bell := handlers.NewBellHandler(d.Bell)
	static := handlers.NewStaticHandler(d.Bundle)

	requireSession := middleware.RequireSession(d.Guard)

	mux.Handle("/health", middleware.RequireMethods(http.MethodGet)(http.HandlerFunc(health.Health)))
	if d.Config.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	// Auth endpoints
	mux.Handle("/api/login",
		middleware.RequireMethods(http.MethodPost)(
			middleware.LoginRateLimit(d.Guard)(
				http.HandlerFunc(auth.Login),
			),
		),
	)
	mux.Handle("/api/logout", middleware.RequireMethods(http.MethodPost)(http.HandlerFunc(auth.Logout)))
	mux.Handle("/api/validate-token",
		middleware.RequireMethods(http.MethodGet)(
			requireSession(http.HandlerFunc(auth.ValidateToken)),
		),
	)

	// Mode: reads are open, writes need a session unless disabled.
	var setMode http.Handler = http.HandlerFunc(mode.Set)
	if d.Config.ModeRequireAuth {
		setMode = requireSession(setMode)
	}
	mux.Handle("/api/mode", middleware.Methods{
		http.MethodGet:  http.HandlerFunc(mode.Get),
		http.MethodPost: setMode,
	})

	// Bell relay
	mux.Handle("/api/bell", middleware.RequireMethods(http.MethodGet)(http.HandlerFunc(bell.Status)))
	mux.Handle("/api/bell/ring",
		middleware.RequireMethods(http.MethodPost)(
			requireSession(
				middleware.RequireRole(d.Config.AdminRole)(
					http.HandlerFunc(bell.Ring),
				),
			),
		),
	)

	// Bundled application
	mux.Handle("/", middleware.RequireMethods(http.MethodGet, http.MethodHead)(static))
	return mux
}

// Server is a running HTTP control surface.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	errc chan error
}

// Start listens on addr and serves h in the background.
func Start(addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:      h,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ln:   ln,
		errc: make(chan error, 1),
	}

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.errc <- err
		close(s.errc)
	}()

	slog.Info("http server listening", slog.String("addr", ln.Addr().String()))
	return s, nil
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Err delivers the serve loop's terminal error, nil after a clean shutdown.
func (s *Server) Err() <-chan error {
	return s.errc
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
