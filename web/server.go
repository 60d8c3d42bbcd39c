// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/syncx"
	"go.astrophena.name/ramses/systemd"
	"go.astrophena.name/ramses/version"
)

// Server is used to configure the HTTP server started by
// [Server.ListenAndServe].
//
// All fields of Server can't be modified after [Server.ListenAndServe] or
// [Server.ServeHTTP] is called for a first time.
type Server struct {
	// Mux is a http.ServeMux to serve.
	Mux *http.ServeMux
	// Middleware specifies an optional slice of HTTP middleware that's applied to
	// each request.
	Middleware []Middleware
	// Addr is a network address to listen on (in the form of "host:port"), or
	// "sd-socket:name" to use the socket named name passed by systemd.
	Addr string
	// Ready specifies an optional function to be called when the server is ready
	// to serve requests.
	Ready func()
	// CSP maps request patterns to their Content-Security-Policy. Requests
	// matching no pattern get the default policy.
	CSP *CSPMux
	// CrossOriginProtection configures CSRF protection. Defaults are used if nil.
	CrossOriginProtection *http.CrossOriginProtection

	handler syncx.Lazy[http.Handler]
}

// ServeHTTP implements the [http.Handler] interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.Get(s.initHandler).ServeHTTP(w, r)
}

var (
	errNoAddr = errors.New("server.Addr is empty")
	errListen = errors.New("failed to listen")
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

func (s *Server) setHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy := defaultCSP.String()
		if s.CSP != nil {
			if p, ok := s.CSP.PolicyFor(r); ok {
				policy = p
			}
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", policy)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the Flusher of the underlying
// writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Flush implements http.Flusher, needed by event streams.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		if r.status == 0 {
			r.status = http.StatusOK
		}
		f.Flush()
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		logger.Debug(r.Context(), "handled request",
			slog.String("method", r.Method),
			slog.String("url", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) initHandler() http.Handler {
	if s.Mux == nil {
		panic("Server.Mux is nil")
	}

	s.Mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) { RespondJSON(w, version.Version()) })
	s.Mux.HandleFunc("GET "+StylePath, serveStyle)
	Health(s.Mux)

	csrf := s.CrossOriginProtection
	if csrf == nil {
		csrf = http.NewCrossOriginProtection()
	}
	csrf.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, fmt.Errorf("%w: CSRF protection failed", ErrForbidden))
	}))

	var h http.Handler = csrf.Handler(s.Mux)
	mws := append([]Middleware{logRequests, s.setHeaders}, s.Middleware...)
	for _, middleware := range slices.Backward(mws) {
		h = middleware(h)
	}
	return h
}

const sdSocketPrefix = "sd-socket:"

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	if name, ok := strings.CutPrefix(s.Addr, sdSocketPrefix); ok {
		l, err := systemd.Socket(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errListen, err)
		}
		return l, nil
	}
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errListen, err)
	}
	return l, nil
}

// ListenAndServe starts the HTTP server that can be stopped by canceling ctx.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Addr == "" {
		return errNoAddr
	}

	l, err := s.listen(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "listening for HTTP requests", slog.String("addr", "http://"+l.Addr().String()))

	// Requests outlive ctx until shutdown, so that event streams end with it.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	httpSrv := &http.Server{
		ErrorLog: slog.NewLogLogger(logger.Get(ctx).Handler(), slog.LevelError),
		Handler:  s,
		BaseContext: func(_ net.Listener) context.Context {
			return baseCtx
		},
	}
	httpSrv.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.Ready != nil {
		s.Ready()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info(ctx, "HTTP server gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}
