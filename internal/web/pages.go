package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/servers"
)

const envFieldPrefix = "env_"

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Not found"})
		return
	}
	s.render(w, r, http.StatusNotFound, "notfound", pageData{Title: "Not found"})
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", pageData{
		Title: "Game Nite",
		Games: s.catalog.Deployable(),
	})
}

func (s *Server) game(w http.ResponseWriter, r *http.Request) {
	game, ok := s.catalog.GetByID(mux.Vars(r)["id"])
	if !ok {
		s.notFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "game", pageData{
		Title:      game.Name,
		Game:       game,
		WorkflowID: r.URL.Query().Get("workflow"),
	})
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	game, ok := s.catalog.GetByID(mux.Vars(r)["id"])
	if !ok {
		s.notFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "create", pageData{
		Title:  "Create " + game.Name + " server",
		Game:   game,
		Fields: envFields(game, nil),
	})
}

func (s *Server) createSubmit(w http.ResponseWriter, r *http.Request) {
	game, ok := s.catalog.GetByID(mux.Vars(r)["id"])
	if !ok {
		s.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	name := r.PostForm.Get("name")
	env := make(map[string]string)
	for key, values := range r.PostForm {
		if k, found := strings.CutPrefix(key, envFieldPrefix); found && len(values) > 0 {
			env[k] = strings.TrimSpace(values[0])
		}
	}

	res := s.actions.CreateServer(r.Context(), game.ID, name, env)
	if !res.Success {
		status := http.StatusUnprocessableEntity
		if res.Error == unauthorizedMessage {
			status = http.StatusUnauthorized
		}
		s.render(w, r, status, "create", pageData{
			Title:  "Create " + game.Name + " server",
			Game:   game,
			Fields: envFields(game, env),
			Name:   name,
			Error:  res.Error,
		})
		return
	}

	target := "/game/" + url.PathEscape(game.ID) + "?workflow=" + url.QueryEscape(res.Data.WorkflowID)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) share(w http.ResponseWriter, r *http.Request) {
	details, err := s.connections.ConnectionDetails(r.Context(), mux.Vars(r)["serviceId"])
	if errors.Is(err, servers.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("service_id", mux.Vars(r)["serviceId"]).Error("Failed to load share details")
		s.render(w, r, http.StatusBadGateway, "error", pageData{Title: "Something went wrong", Error: "We couldn't load this server right now. Try again in a moment."})
		return
	}
	s.render(w, r, http.StatusOK, "share", pageData{
		Title:   "Join " + details.ServerName,
		Details: details,
	})
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageData{
		Title: "Sign in",
		From:  auth.SafeRedirect(r.URL.Query().Get("from")),
	})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	from := auth.SafeRedirect(r.PostForm.Get("from"))

	user, err := s.users.Authenticate(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.log.WithError(err).Error("Failed to authenticate user")
		}
		s.render(w, r, http.StatusUnauthorized, "login", pageData{
			Title: "Sign in",
			Email: email,
			From:  from,
			Error: "Invalid email or password",
		})
		return
	}

	if err := s.sessions.Login(w, r, user); err != nil {
		s.log.WithError(err).Error("Failed to save session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, from, http.StatusSeeOther)
}

func (s *Server) signupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", pageData{Title: "Create an account"})
}

func (s *Server) signupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	name := r.PostForm.Get("name")

	user, err := s.users.CreateUser(r.Context(), email, name, r.PostForm.Get("password"))
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "signup", pageData{
			Title: "Create an account",
			Email: email,
			Name:  name,
			Error: signupMessage(err),
		})
		return
	}

	s.log.WithField("user_id", user.ID).Info("User signed up")
	if err := s.sessions.Login(w, r, user); err != nil {
		s.log.WithError(err).Error("Failed to save session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// signupMessage capitalizes store validation errors for display.
func signupMessage(err error) string {
	msg := err.Error()
	if msg == "" || strings.HasPrefix(msg, "insert user") || strings.HasPrefix(msg, "hash password") {
		return "Could not create your account. Please try again."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.log.WithError(err).Warn("Failed to clear session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
