// Sync group subcommands: list, inspect, create, activate, deactivate.
package main

import (
	"time"

	"github.com/concave-dev/lockstep/cmd/lockstepctl/client"
	"github.com/concave-dev/lockstep/cmd/lockstepctl/display"
	"github.com/spf13/cobra"
)

// Group command configuration
var groupFlags struct {
	ID               string
	Name             string
	Viewports        []string
	Types            []string
	Priority         int
	MaxLatency       time.Duration
	TolerateFailures bool
	RequireConsensus bool
	NoBatching       bool
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage sync groups",
}

var groupLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List configured sync groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := apiClient().GetGroups()
		if err != nil {
			return err
		}
		display.ShowGroups(groups)
		return nil
	},
}

var groupInfoCmd = &cobra.Command{
	Use:   "info <group-id>",
	Short: "Show group configuration and rolling performance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := apiClient().GetGroupInfo(args[0])
		if err != nil {
			return err
		}
		display.ShowGroupInfo(info)
		return nil
	},
}

var groupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register or replace a sync group",
	Example: `  # Link the three MPR viewports for pan, zoom and scroll
  lockstepctl group create --id=grp-mpr --viewports=viewport-1,viewport-2,viewport-3 \
    --types=pan,zoom,scroll --priority=6

  # A consensus group where every viewport must apply or the sync fails
  lockstepctl group create --id=grp-fusion --viewports=viewport-1,viewport-4 \
    --types=window-level --consensus`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, err := apiClient().ConfigureGroup(client.Group{
			ID:          groupFlags.ID,
			Name:        groupFlags.Name,
			ViewportIDs: groupFlags.Viewports,
			SyncTypes:   groupFlags.Types,
			Priority:    groupFlags.Priority,
			IsActive:    true,
			Constraints: client.GroupConstraints{
				MaxLatency:       int64(groupFlags.MaxLatency),
				TolerateFailures: groupFlags.TolerateFailures,
				RequireConsensus: groupFlags.RequireConsensus,
				BatchOperations:  !groupFlags.NoBatching,
			},
		})
		if err != nil {
			return err
		}
		display.ShowGroups([]client.Group{*stored})
		return nil
	},
}

var groupActivateCmd = &cobra.Command{
	Use:   "activate <group-id>",
	Short: "Activate a sync group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return apiClient().SetGroupActive(args[0], true)
	},
}

var groupDeactivateCmd = &cobra.Command{
	Use:   "deactivate <group-id>",
	Short: "Deactivate a sync group without discarding its configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return apiClient().SetGroupActive(args[0], false)
	},
}

func setupGroupCommands() {
	groupCreateCmd.Flags().StringVar(&groupFlags.ID, "id", "",
		"Group ID (generated when omitted)")
	groupCreateCmd.Flags().StringVar(&groupFlags.Name, "name", "",
		"Human-readable group name")
	groupCreateCmd.Flags().StringSliceVar(&groupFlags.Viewports, "viewports", nil,
		"Comma-separated viewport IDs (at least two)")
	groupCreateCmd.Flags().StringSliceVar(&groupFlags.Types, "types", nil,
		"Comma-separated sync types (pan, zoom, window-level, scroll, crosshair, orientation)")
	groupCreateCmd.Flags().IntVar(&groupFlags.Priority, "priority", 0,
		"Group priority 0-10 for ownership tiebreaks")
	groupCreateCmd.Flags().DurationVar(&groupFlags.MaxLatency, "max-latency", 0,
		"Per-target latency bound for owned operations (e.g. 50ms)")
	groupCreateCmd.Flags().BoolVar(&groupFlags.TolerateFailures, "tolerate-failures", false,
		"Allow partial sync when some targets fail")
	groupCreateCmd.Flags().BoolVar(&groupFlags.RequireConsensus, "consensus", false,
		"Fail the whole operation when any target fails")
	groupCreateCmd.Flags().BoolVar(&groupFlags.NoBatching, "no-batching", false,
		"Dispatch owned operations individually, bypassing the batching window")
	groupCreateCmd.MarkFlagRequired("viewports")
	groupCreateCmd.MarkFlagRequired("types")

	groupCmd.AddCommand(groupLsCmd)
	groupCmd.AddCommand(groupInfoCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupActivateCmd)
	groupCmd.AddCommand(groupDeactivateCmd)
	rootCmd.AddCommand(groupCmd)
}
