package gamenite

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlesvien/game-nite/internal/actions"
	"github.com/charlesvien/game-nite/internal/export"
	"github.com/charlesvien/game-nite/internal/poll"
	"github.com/charlesvien/game-nite/internal/railway"
)

const (
	workflowPollInterval = 3 * time.Second
	serverPollInterval   = 5 * time.Second
)

func errGameNotFound(id string) error {
	return fmt.Errorf("game %q not found (run \"gamenite games\" to list games)", id)
}

type serverTable []actions.SerializedService

func (l serverTable) Table() export.Table {
	t := export.Table{Headers: []string{"ID", "NAME", "STATUS", "CREATED"}}
	for _, s := range l {
		created := s.CreatedAt
		if ts, err := time.Parse(time.RFC3339Nano, s.CreatedAt); err == nil {
			created = ts.Local().Format("2006-01-02 15:04")
		}
		t.Rows = append(t.Rows, []string{s.ID, s.Name, s.Display.Label, created})
	}
	return t
}

// signalContext is cancelled on interrupt so polling commands exit cleanly.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var serversCmd = &cobra.Command{
	Use:     "servers",
	Aliases: []string{"server"},
	Short:   "Manage game servers",
}

var serversListCmd = &cobra.Command{
	Use:   "list <game-id>",
	Short: "List the servers running a game",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if _, ok := a.catalog.GetByID(args[0]); !ok {
			return errGameNotFound(args[0])
		}

		res := a.actions.ListServers(operatorContext(cmd.Context()), args[0])
		if err := resultError(res); err != nil {
			return err
		}
		return render(cmd, serverTable(*res.Data))
	},
}

var (
	createEnv    []string
	createWait   bool
	createDirect bool
)

func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q, want KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}

var serversCreateCmd = &cobra.Command{
	Use:   "create <game-id> <name>",
	Short: "Create a server for a game",
	Long: `Create deploys a new server for the game. By default the server is
deployed from a template in one step and the command prints the workflow id.
With --wait it follows the deployment until the server is online.

Use --direct to create the service, its variables, volume and TCP proxy one
at a time instead of deploying a template.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := parseEnv(createEnv)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(operatorContext(cmd.Context()))
		defer cancel()

		gameID, name := args[0], args[1]
		out := cmd.OutOrStdout()

		if createDirect {
			res := a.actions.CreateServerDirect(ctx, gameID, name, env)
			if err := resultError(res); err != nil {
				return err
			}
			if !createWait {
				return render(cmd, serverTable{*res.Data})
			}
			return waitForServer(ctx, out, a.actions, new(poll.Owner), gameID, res.Data.Name)
		}

		res := a.actions.CreateServer(ctx, gameID, name, env)
		if err := resultError(res); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deployment started for %s (workflow %s)\n", strings.TrimSpace(name), res.Data.WorkflowID)
		if !createWait {
			return nil
		}

		var owner poll.Owner
		if err := waitForWorkflow(ctx, out, a.actions, &owner, res.Data.WorkflowID); err != nil {
			return err
		}
		return waitForServer(ctx, out, a.actions, &owner, gameID, strings.TrimSpace(name))
	},
}

// waitForWorkflow polls a template deployment until it ends.
func waitForWorkflow(ctx context.Context, out io.Writer, a *actions.Actions, owner *poll.Owner, workflowID string) error {
	var last string
	task := owner.Start(ctx, "workflow:"+workflowID, workflowPollInterval, func(ctx context.Context) (bool, error) {
		res := a.GetWorkflowStatus(ctx, workflowID)
		if err := resultError(res); err != nil {
			return false, err
		}
		status := *res.Data
		if status.Status != last {
			fmt.Fprintf(out, "Workflow %s: %s\n", workflowID, orUnknown(status.Status))
			last = status.Status
		}
		if status.Failed() {
			return false, fmt.Errorf("deployment failed: %s", orUnknown(status.Error))
		}
		return status.Terminal(), nil
	})
	return task.Wait()
}

// waitForServer polls the game's servers until the named one is online or
// has crashed.
func waitForServer(ctx context.Context, out io.Writer, a *actions.Actions, owner *poll.Owner, gameID, name string) error {
	var last string
	task := owner.Start(ctx, "server:"+gameID+"/"+name, serverPollInterval, func(ctx context.Context) (bool, error) {
		res := a.ListServers(ctx, gameID)
		if err := resultError(res); err != nil {
			return false, err
		}
		for _, s := range *res.Data {
			if !strings.EqualFold(s.Name, name) {
				continue
			}
			status := railway.DeploymentStatus(strings.ToUpper(s.DeploymentStatus))
			if s.DeploymentStatus != last {
				fmt.Fprintf(out, "%s: %s\n", s.Name, s.Display.Label)
				last = s.DeploymentStatus
			}
			switch status {
			case railway.StatusSuccess:
				fmt.Fprintf(out, "Server is online. Share it with: gamenite share %s\n", s.ID)
				return true, nil
			case railway.StatusCrashed, railway.StatusFailed:
				return false, fmt.Errorf("server %s crashed", s.Name)
			}
			return false, nil
		}
		return false, nil
	})
	return task.Wait()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

var restartGameID string

var serversRestartCmd = &cobra.Command{
	Use:   "restart <service-id>",
	Short: "Redeploy a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		res := a.actions.RestartServer(operatorContext(cmd.Context()), args[0], restartGameID)
		if err := resultError(res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Server restarting...")
		return nil
	},
}

var deleteYes bool

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var serversDeleteCmd = &cobra.Command{
	Use:   "delete <service-id>",
	Short: "Delete a server and its volumes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteYes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure you want to delete this server? This cannot be undone.") {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		res := a.actions.DeleteServer(operatorContext(cmd.Context()), args[0], "")
		if err := resultError(res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Server has been deleted")
		return nil
	},
}

var watchInterval time.Duration

func validateInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid --interval %s, must be positive", d)
	}
	return nil
}

var serversWatchCmd = &cobra.Command{
	Use:   "watch <game-id>",
	Short: "Show a game's servers and refresh until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateInterval(watchInterval); err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if _, ok := a.catalog.GetByID(args[0]); !ok {
			return errGameNotFound(args[0])
		}
		ctx, cancel := signalContext(operatorContext(cmd.Context()))
		defer cancel()

		out := cmd.OutOrStdout()
		task := poll.Start(ctx, watchInterval, func(ctx context.Context) (bool, error) {
			res := a.actions.ListServers(ctx, args[0])
			fmt.Fprintf(out, "\n%s\n", time.Now().Format("15:04:05"))
			if !res.Success {
				// Keep watching through transient failures.
				fmt.Fprintln(out, "Error:", res.Error)
				return false, nil
			}
			return false, render(cmd, serverTable(*res.Data))
		})

		err = task.Wait()
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	serversCreateCmd.Flags().StringArrayVarP(&createEnv, "env", "e", nil, "override a game setting (KEY=VALUE, repeatable)")
	serversCreateCmd.Flags().BoolVarP(&createWait, "wait", "w", false, "wait until the server is online")
	serversCreateCmd.Flags().BoolVar(&createDirect, "direct", false, "create resources one at a time instead of deploying a template")
	serversRestartCmd.Flags().StringVar(&restartGameID, "game", "", "game the server belongs to (for logs)")
	serversDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	serversWatchCmd.Flags().DurationVar(&watchInterval, "interval", serverPollInterval, "refresh interval")

	serversCmd.AddCommand(serversListCmd, serversCreateCmd, serversRestartCmd, serversDeleteCmd, serversWatchCmd)
	rootCmd.AddCommand(serversCmd)
}
