package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/charlesvien/game-nite/internal/servers"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var embeddedStatic embed.FS

var staticFS = mustSub(embeddedStatic, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

var pageNames = []string{"home", "game", "create", "share", "login", "signup", "notfound", "error"}

type pageSet map[string]*template.Template

func parsePages() (pageSet, error) {
	pages := make(pageSet, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

type envField struct {
	Key         string
	Value       string
	Description string
	Sensitive   bool
}

type pageData struct {
	Title         string
	User          *auth.User
	Error         string
	GoogleEnabled bool
	From          string

	Games      []games.Game
	Game       games.Game
	Fields     []envField
	Name       string
	Email      string
	WorkflowID string
	Details    *servers.ConnectionDetails
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.User = auth.UserFromContext(r.Context())
	data.GoogleEnabled = s.google != nil

	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.WithError(err).WithField("page", name).Error("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func envFields(game games.Game, values map[string]string) []envField {
	fields := make([]envField, 0, len(game.EnvironmentVariables))
	for _, v := range game.EnvironmentVariables {
		value := v.Value
		if submitted, ok := values[v.Key]; ok {
			value = submitted
		}
		fields = append(fields, envField{
			Key:         v.Key,
			Value:       value,
			Description: v.Description,
			Sensitive:   v.Sensitive(),
		})
	}
	return fields
}
