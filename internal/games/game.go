package games

import "strconv"

// Source identifies where a service is deployed from. Exactly one field is
// expected to be set in catalog data.
type Source struct {
	Image string `json:"image,omitempty" toml:"image,omitempty" yaml:"image,omitempty"`
	Repo  string `json:"repo,omitempty" toml:"repo,omitempty" yaml:"repo,omitempty"`
}

// Valid reports whether the source has at least one identifying field.
func (s Source) Valid() bool {
	return s.Image != "" || s.Repo != ""
}

// Template returns the value used as the template code when deploying.
func (s Source) Template() string {
	if s.Image != "" {
		return s.Image
	}
	return s.Repo
}

type EnvVar struct {
	Key         string `json:"key" toml:"key" yaml:"key"`
	Value       string `json:"value" toml:"value" yaml:"value"`
	Description string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`
}

// Sensitive reports whether the variable should be masked when displayed.
func (v EnvVar) Sensitive() bool {
	return IsSensitiveKey(v.Key)
}

// Game is a deployable game definition. Values handed out by a Catalog must
// be treated as read-only.
type Game struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Description          string   `json:"description" yaml:"description"`
	Color                string   `json:"color" yaml:"color"`
	Image                string   `json:"image" yaml:"image"` // artwork asset path
	Source               Source   `json:"source" yaml:"source"`
	DefaultPort          int      `json:"defaultPort" yaml:"defaultPort"`
	EnvironmentVariables []EnvVar `json:"environmentVariables" yaml:"environmentVariables"`
	VolumeMountPath      string   `json:"volumeMountPath,omitempty" yaml:"volumeMountPath,omitempty"`
}

func (g Game) CanDeploy() bool {
	return g.Source.Valid()
}

// Environment builds the variables for a new server. Defaults come from the
// game; non-empty overrides replace them. PORT falls back to the game's
// default port when neither side set it.
func (g Game) Environment(overrides map[string]string) map[string]string {
	vars := make(map[string]string, len(g.EnvironmentVariables)+len(overrides)+1)
	for _, v := range g.EnvironmentVariables {
		vars[v.Key] = v.Value
	}
	for k, v := range overrides {
		if v == "" {
			continue
		}
		vars[k] = v
	}
	if vars["PORT"] == "" {
		vars["PORT"] = strconv.Itoa(g.DefaultPort)
	}
	return vars
}

// Matches reports whether a deployed service's source belongs to game.
func Matches(game Game, source Source) bool {
	if game.Source.Image != "" && game.Source.Image == source.Image {
		return true
	}
	if game.Source.Repo != "" && game.Source.Repo == source.Repo {
		return true
	}
	return false
}
