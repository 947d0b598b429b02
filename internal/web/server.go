// Package web serves the Game Nite site: HTML pages, the JSON endpoints the
// pages poll, and the sign-in flows.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/charlesvien/game-nite/internal/actions"
	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/charlesvien/game-nite/internal/servers"
)

// ConnectionResolver builds the public share details for a server.
// *servers.Service implements it.
type ConnectionResolver interface {
	ConnectionDetails(ctx context.Context, serviceID string) (*servers.ConnectionDetails, error)
}

// UserStore handles email/password accounts. *auth.Store implements it.
type UserStore interface {
	CreateUser(ctx context.Context, email, name, password string) (*auth.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
}

type Options struct {
	Actions     *actions.Actions
	Connections ConnectionResolver
	Catalog     *games.Catalog
	Sessions    *auth.Sessions
	Users       UserStore
	// Google is optional. Without it only email sign-in is offered.
	Google *auth.GoogleAgent
	Logger *logrus.Entry
}

type Server struct {
	actions     *actions.Actions
	connections ConnectionResolver
	catalog     *games.Catalog
	sessions    *auth.Sessions
	users       UserStore
	google      *auth.GoogleAgent
	log         *logrus.Entry
	pages       pageSet
}

func New(opts Options) (*Server, error) {
	if opts.Actions == nil || opts.Connections == nil || opts.Catalog == nil || opts.Sessions == nil || opts.Users == nil {
		return nil, errors.New("web: actions, connections, catalog, sessions and users are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{
		actions:     opts.Actions,
		connections: opts.Connections,
		catalog:     opts.Catalog,
		sessions:    opts.Sessions,
		users:       opts.Users,
		google:      opts.Google,
		log:         logger.WithField("component", "web"),
		pages:       pages,
	}, nil
}

// Handler returns the routed site wrapped in the session middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Path("/healthz").Methods(http.MethodGet).HandlerFunc(s.healthz)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	api := r.PathPrefix("/api").Subrouter()
	api.Path("/games/{id}/servers").Methods(http.MethodGet).HandlerFunc(s.apiListServers)
	api.Path("/games/{id}/servers").Methods(http.MethodPost).HandlerFunc(s.apiCreateServer)
	api.Path("/servers/{id}/restart").Methods(http.MethodPost).HandlerFunc(s.apiRestartServer)
	api.Path("/servers/{id}").Methods(http.MethodDelete).HandlerFunc(s.apiDeleteServer)
	api.Path("/workflows/{id}").Methods(http.MethodGet).HandlerFunc(s.apiWorkflowStatus)

	r.Path("/").Methods(http.MethodGet).HandlerFunc(s.home)
	r.Path("/game/{id}").Methods(http.MethodGet).HandlerFunc(s.game)
	r.Path("/game/{id}/create").Methods(http.MethodGet).HandlerFunc(s.createForm)
	r.Path("/game/{id}/create").Methods(http.MethodPost).HandlerFunc(s.createSubmit)
	r.Path("/share/{serviceId}").Methods(http.MethodGet).HandlerFunc(s.share)

	r.Path("/login").Methods(http.MethodGet).HandlerFunc(s.loginForm)
	r.Path("/login").Methods(http.MethodPost).HandlerFunc(s.loginSubmit)
	r.Path("/signup").Methods(http.MethodGet).HandlerFunc(s.signupForm)
	r.Path("/signup").Methods(http.MethodPost).HandlerFunc(s.signupSubmit)
	r.Path("/logout").Methods(http.MethodPost).HandlerFunc(s.logout)

	if s.google != nil {
		r.Path("/auth/google").Methods(http.MethodGet).Handler(s.google.HandleLogin())
		r.Path("/auth/google/callback").Methods(http.MethodGet).Handler(s.google.HandleRedirect())
	}

	r.NotFoundHandler = http.HandlerFunc(s.notFound)

	return s.sessions.Middleware(s.logRequests(r))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/healthz" {
			return
		}
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("Handled request")
	})
}
