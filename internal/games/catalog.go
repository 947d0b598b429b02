package games

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed games.toml
var defaultCatalog []byte

// catalogFile is the on-disk catalog schema shared by the TOML, YAML and JSON
// formats.
type catalogFile struct {
	Games []gameConfig `json:"games" toml:"games" yaml:"games"`
}

type gameConfig struct {
	ID              string   `json:"id" toml:"id" yaml:"id"`
	Name            string   `json:"name" toml:"name" yaml:"name"`
	Description     string   `json:"description" toml:"description" yaml:"description"`
	Color           string   `json:"color" toml:"color" yaml:"color"`
	Image           string   `json:"image" toml:"image" yaml:"image"`
	Port            int      `json:"port" toml:"port" yaml:"port"`
	Source          Source   `json:"source" toml:"source" yaml:"source"`
	Env             []EnvVar `json:"env,omitempty" toml:"env,omitempty" yaml:"env,omitempty"`
	VolumeMountPath string   `json:"volume_mount_path,omitempty" toml:"volume_mount_path,omitempty" yaml:"volume_mount_path,omitempty"`
}

func (c gameConfig) game() Game {
	return Game{
		ID:                   c.ID,
		Name:                 c.Name,
		Description:          c.Description,
		Color:                c.Color,
		Image:                c.Image,
		Source:               c.Source,
		DefaultPort:          c.Port,
		EnvironmentVariables: c.Env,
		VolumeMountPath:      c.VolumeMountPath,
	}
}

// Catalog is the read-only set of games known to the process.
type Catalog struct {
	games []Game
	byID  map[string]int
}

// NewCatalog builds a catalog, keeping the given order.
func NewCatalog(games ...Game) (*Catalog, error) {
	c := &Catalog{
		games: make([]Game, 0, len(games)),
		byID:  make(map[string]int, len(games)),
	}
	for _, g := range games {
		if g.ID == "" {
			return nil, fmt.Errorf("game %q has no id", g.Name)
		}
		if _, exists := c.byID[g.ID]; exists {
			return nil, fmt.Errorf("duplicate game id %q", g.ID)
		}
		c.byID[g.ID] = len(c.games)
		c.games = append(c.games, g)
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog, "toml")
	if err != nil {
		panic(fmt.Sprintf("embedded game catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, picking the format from its extension.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game catalog: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := ParseCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse game catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes catalog data in the given format (toml, yaml, yml or json).
func ParseCatalog(data []byte, format string) (*Catalog, error) {
	var file catalogFile
	var err error

	switch format {
	case "toml":
		err = toml.Unmarshal(data, &file)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &file)
	case "json":
		err = json.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, err
	}

	games := make([]Game, 0, len(file.Games))
	for _, gc := range file.Games {
		games = append(games, gc.game())
	}
	return NewCatalog(games...)
}

// GetByID looks up a game by identifier.
func (c *Catalog) GetByID(id string) (Game, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Game{}, false
	}
	return c.games[i], true
}

// All returns every game in catalog order.
func (c *Catalog) All() []Game {
	out := make([]Game, len(c.games))
	copy(out, c.games)
	return out
}

// Deployable returns the games that have a deployment source.
func (c *Catalog) Deployable() []Game {
	var out []Game
	for _, g := range c.games {
		if g.CanDeploy() {
			out = append(out, g)
		}
	}
	return out
}

// BySource finds the first game a deployed service's source belongs to.
func (c *Catalog) BySource(source Source) (Game, bool) {
	for _, g := range c.games {
		if Matches(g, source) {
			return g, true
		}
	}
	return Game{}, false
}
