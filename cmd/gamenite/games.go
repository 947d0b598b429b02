package gamenite

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/charlesvien/game-nite/internal/config"
	"github.com/charlesvien/game-nite/internal/export"
	"github.com/charlesvien/game-nite/internal/games"
)

type gameList []games.Game

func (l gameList) Table() export.Table {
	t := export.Table{Headers: []string{"ID", "NAME", "SOURCE", "PORT", "VOLUME"}}
	for _, g := range l {
		source := g.Source.Image
		if source == "" {
			source = g.Source.Repo
		}
		t.Rows = append(t.Rows, []string{g.ID, g.Name, source, strconv.Itoa(g.DefaultPort), g.VolumeMountPath})
	}
	return t
}

type gameEnv []games.EnvVar

func (l gameEnv) Table() export.Table {
	t := export.Table{Headers: []string{"KEY", "DEFAULT", "DESCRIPTION"}}
	for _, v := range l {
		t.Rows = append(t.Rows, []string{v.Key, games.Mask(v.Key, v.Value), v.Description})
	}
	return t
}

var gamesCmd = &cobra.Command{
	Use:   "games [game-id]",
	Short: "List the game catalog, or show one game's settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// The catalog is local, so no Railway credentials are needed.
		cfg := config.Load(viper.GetViper())
		catalog, err := games.LoadCatalog(cfg.GamesFile)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return render(cmd, gameList(catalog.All()))
		}

		game, ok := catalog.GetByID(strings.ToLower(args[0]))
		if !ok {
			return errGameNotFound(args[0])
		}
		if outputFormat == "" || outputFormat == "table" {
			return render(cmd, gameEnv(game.EnvironmentVariables))
		}
		return render(cmd, game)
	},
}

func init() {
	rootCmd.AddCommand(gamesCmd)
}
