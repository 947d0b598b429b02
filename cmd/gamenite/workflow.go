package gamenite

import (
	"github.com/spf13/cobra"

	"github.com/charlesvien/game-nite/internal/export"
	"github.com/charlesvien/game-nite/internal/poll"
	"github.com/charlesvien/game-nite/internal/railway"
)

type workflowTable railway.WorkflowStatus

func (w workflowTable) Table() export.Table {
	return export.Table{
		Headers: []string{"STATUS", "ERROR"},
		Rows:    [][]string{{orUnknown(w.Status), w.Error}},
	}
}

var workflowWait bool

var workflowCmd = &cobra.Command{
	Use:   "workflow <workflow-id>",
	Short: "Show the status of a template deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(operatorContext(cmd.Context()))
		defer cancel()

		if workflowWait {
			return waitForWorkflow(ctx, cmd.OutOrStdout(), a.actions, new(poll.Owner), args[0])
		}

		res := a.actions.GetWorkflowStatus(ctx, args[0])
		if err := resultError(res); err != nil {
			return err
		}
		return render(cmd, workflowTable(*res.Data))
	},
}

func init() {
	workflowCmd.Flags().BoolVarP(&workflowWait, "wait", "w", false, "poll until the deployment finishes")
	rootCmd.AddCommand(workflowCmd)
}
