package gamenite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlesvien/game-nite/internal/export"
	"github.com/charlesvien/game-nite/internal/servers"
)

type shareTable servers.ConnectionDetails

func (d shareTable) Table() export.Table {
	return export.Table{
		Headers: []string{"SERVER", "GAME", "ADDRESS", "PORT", "PASSWORD"},
		Rows:    [][]string{{d.ServerName, d.Game, d.Address, d.Port, d.Password}},
	}
}

var shareURL bool

var shareCmd = &cobra.Command{
	Use:   "share <service-id>",
	Short: "Print the connection details friends need to join a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if shareURL {
			fmt.Fprintf(cmd.OutOrStdout(), "%s/share/%s\n", strings.TrimRight(a.cfg.AuthURL, "/"), args[0])
			return nil
		}

		details, err := a.servers.ConnectionDetails(cmd.Context(), args[0])
		if errors.Is(err, servers.ErrNotFound) {
			return fmt.Errorf("server %s not found or not reachable yet", args[0])
		}
		if err != nil {
			return err
		}
		return render(cmd, shareTable(*details))
	},
}

func init() {
	shareCmd.Flags().BoolVar(&shareURL, "url", false, "print the share page link instead")
	rootCmd.AddCommand(shareCmd)
}
