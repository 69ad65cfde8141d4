// Package web provides the HTTP API for the visit scheduler.
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/logging"
	"github.com/evcraddock/visit-scheduler/internal/response"
	"github.com/evcraddock/visit-scheduler/internal/scheduling"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Options configures the HTTP server.
type Options struct {
	Service        *scheduling.Service
	Tokens         *auth.TokenIssuer
	Logger         *zap.Logger
	AllowedOrigins []string // empty allows any origin without credentials
}

// Server is the JSON API server.
type Server struct {
	svc    *scheduling.Service
	users  *auth.UserStore
	keys   *auth.APIKeyStore
	tokens *auth.TokenIssuer
	authn  *auth.Authenticator
	log    *zap.Logger
	router *chi.Mux
}

// NewServer creates an API server on the given database.
func NewServer(database *sql.DB, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	svc := opts.Service
	if svc == nil {
		svc = scheduling.NewService(database, scheduling.Options{Logger: log})
	}

	s := &Server{
		svc:    svc,
		users:  auth.NewUserStore(database),
		keys:   auth.NewAPIKeyStore(database),
		tokens: opts.Tokens,
		log:    log,
		router: chi.NewRouter(),
	}
	s.authn = auth.NewAuthenticator(s.keys, s.tokens)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.RequestLogger(log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsHandler(opts.AllowedOrigins))
	s.router.Use(middleware.Timeout(requestTimeout))

	s.routes()
	return s
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	o := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		o.AllowedOrigins = []string{"*"}
		o.AllowCredentials = false
	}
	return cors.Handler(o)
}

func (s *Server) routes() {
	r := s.router
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", s.handleToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authn.RequireBearer)

			r.Get("/me", s.handleMe)

			keys := &apikeyHandlers{keys: s.keys, log: s.log}
			r.Route("/keys", func(r chi.Router) {
				r.Get("/", keys.handleListKeys)
				r.Post("/", keys.handleCreateKey)
				r.Delete("/{keyID}", keys.handleRevokeKey)
			})

			users := &userHandlers{users: s.users, log: s.log}
			r.Route("/users", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))
				r.Get("/", users.listUsers)
				r.Post("/", users.addUser)
				r.Delete("/{userID}", users.deleteUser)
			})

			r.Route("/properties", func(r chi.Router) {
				r.Get("/", s.listProperties)
				r.With(auth.RequireRole(auth.RoleOwner)).Post("/", s.createProperty)

				r.Route("/{propertyID}", func(r chi.Router) {
					r.Get("/", s.getProperty)
					r.Delete("/", s.deleteProperty)

					r.Get("/visit-slots", s.listSlots)
					r.Post("/visit-slots", s.saveSlots)
					r.Post("/visit-slots/generate", s.generateSlots)
					r.Get("/visit-slots/export", s.exportSlots)
					r.Patch("/visit-slots/{slotID}", s.updateSlot)
					r.Delete("/visit-slots/{slotID}", s.deleteSlot)

					r.Get("/applications", s.listApplications)
					r.With(auth.RequireRole(auth.RoleTenant)).Post("/applications", s.apply)
				})
			})

			r.Get("/applications", s.myApplications)
			r.Route("/applications/{applicationID}", func(r chi.Router) {
				r.Get("/", s.getApplication)
				r.Post("/propose-visit-slots", s.proposeSlots)
				r.Get("/available-slots", s.availableSlots)
				r.Post("/choose-visit-slot", s.chooseSlot)
				r.Post("/status", s.advanceApplication)
				r.Get("/history", s.applicationHistory)
				r.Get("/messages", s.applicationMessages)
				r.Get("/visits", s.applicationVisits)
			})

			r.Post("/visits/{visitID}/status", s.updateVisit)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// decode reads a JSON request body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func propertyID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	return id, err == nil && id > 0
}
