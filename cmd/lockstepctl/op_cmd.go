// Operation subcommands: submit, cancel, flush.
package main

import (
	"fmt"

	"github.com/concave-dev/lockstep/cmd/lockstepctl/client"
	"github.com/concave-dev/lockstep/cmd/lockstepctl/display"
	"github.com/spf13/cobra"
)

// Submit command configuration
var submitFlags struct {
	Type         string
	Source       string
	Targets      []string
	Priority     int
	Wait         bool
	ExactMatch   bool
	AllowPartial bool
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a sync operation",
	Long: `Submit a sync operation to the daemon's scheduling pipeline. By default
the command returns once the operation is admitted; pass --wait to block
until the operation completes and print its terminal result.

Note that a batched operation resolves under a fresh merged ID, which the
result reports in place of the submitted ID.`,
	Example: `  # Propagate a pan from viewport-1 to two linked viewports
  lockstepctl submit --type=pan --source=viewport-1 --targets=viewport-2,viewport-3

  # High-priority orientation change, delivered exactly as submitted
  lockstepctl submit --type=orientation --source=viewport-1 --targets=viewport-2 \
    --priority=9 --exact --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := client.OperationRequest{
			Type:              submitFlags.Type,
			SourceViewportID:  submitFlags.Source,
			TargetViewportIDs: submitFlags.Targets,
			Priority:          submitFlags.Priority,
		}
		req.Constraints.RequireExactMatch = submitFlags.ExactMatch
		req.Constraints.AllowPartialSync = submitFlags.AllowPartial

		if submitFlags.Wait {
			result, err := apiClient().SubmitOperationWait(req)
			if err != nil {
				return err
			}
			display.ShowOperationResult(result)
			return nil
		}

		accepted, err := apiClient().SubmitOperation(req)
		if err != nil {
			return err
		}
		display.ShowOperationAccepted(accepted)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <operation-id>",
	Short: "Cancel a queued or batching operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient().CancelOperation(args[0]); err != nil {
			return err
		}
		fmt.Printf("Operation %s cancelled\n", args[0])
		return nil
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Force-flush all open batching windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient().FlushOperations(); err != nil {
			return err
		}
		fmt.Println("Batching windows flushed")
		return nil
	},
}

func setupOperationCommands() {
	submitCmd.Flags().StringVar(&submitFlags.Type, "type", "",
		"Sync type: pan, zoom, window-level, scroll, crosshair, orientation")
	submitCmd.Flags().StringVar(&submitFlags.Source, "source", "",
		"Source viewport ID")
	submitCmd.Flags().StringSliceVar(&submitFlags.Targets, "targets", nil,
		"Comma-separated target viewport IDs")
	submitCmd.Flags().IntVar(&submitFlags.Priority, "priority", 0,
		"Operation priority 0-10")
	submitCmd.Flags().BoolVar(&submitFlags.Wait, "wait", false,
		"Wait for the terminal result instead of returning on admission")
	submitCmd.Flags().BoolVar(&submitFlags.ExactMatch, "exact", false,
		"Deliver exactly as submitted, bypassing batching and merging")
	submitCmd.Flags().BoolVar(&submitFlags.AllowPartial, "allow-partial", false,
		"Report partial success when some targets fail")
	submitCmd.MarkFlagRequired("type")
	submitCmd.MarkFlagRequired("source")
	submitCmd.MarkFlagRequired("targets")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(flushCmd)
}
