// Package display provides output formatting for lockstepctl.
//
// This package handles all user-facing output including table and JSON
// formats for scheduler metrics, engine configuration, sync groups, and
// operation results. Table output uses text/tabwriter for consistent
// alignment; JSON output is indented for piping into other tools.
package display

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/concave-dev/lockstep/cmd/lockstepctl/client"
	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/dustin/go-humanize"
)

// JSONOutput switches all display functions to JSON. Set from the global
// --output flag before command handlers run.
var JSONOutput bool

// printJSON writes any value as indented JSON to stdout.
func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		logging.Error("Failed to encode JSON: %v", err)
		fmt.Println("Error encoding JSON output")
	}
}

// ShowHealth displays daemon health status.
func ShowHealth(health *client.HealthResponse) {
	if JSONOutput {
		printJSON(health)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Status:\t%s\n", health.Status)
	fmt.Fprintf(w, "Version:\t%s\n", health.Version)
	fmt.Fprintf(w, "Uptime:\t%s\n", health.Uptime)
	fmt.Fprintf(w, "Queued:\t%d\n", health.QueueLength)
	fmt.Fprintf(w, "Active Groups:\t%d\n", health.ActiveGroups)
}

// ShowMetrics displays a scheduler metrics snapshot.
func ShowMetrics(resp *client.MetricsResponse) {
	if JSONOutput {
		printJSON(resp)
		return
	}

	m := resp.Metrics
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Total operations:\t%s\n", humanize.Comma(int64(m.TotalOperations)))
	fmt.Fprintf(w, "Completed:\t%s\n", humanize.Comma(int64(m.CompletedOperations)))
	fmt.Fprintf(w, "Failed:\t%s\n", humanize.Comma(int64(m.FailedOperations)))
	fmt.Fprintf(w, "Batched:\t%s\n", humanize.Comma(int64(m.BatchedOperations)))
	fmt.Fprintf(w, "Throttled:\t%s\n", humanize.Comma(int64(m.ThrottledOperations)))
	fmt.Fprintf(w, "Average latency:\t%v\n", time.Duration(m.AverageLatency))
	fmt.Fprintf(w, "Peak latency:\t%v\n", time.Duration(m.PeakLatency))
	fmt.Fprintf(w, "Throughput:\t%.1f ops/sec\n", m.Throughput)
	fmt.Fprintf(w, "Queue length:\t%d\n", m.QueueLength)
	fmt.Fprintf(w, "Active groups:\t%d\n", m.ActiveGroups)
}

// ShowConfig displays the engine's live tuning configuration.
func ShowConfig(cfg *client.EngineConfig) {
	if JSONOutput {
		printJSON(cfg)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Max concurrent operations:\t%d\n", cfg.MaxConcurrentOperations)
	fmt.Fprintf(w, "Operation timeout:\t%v\n", time.Duration(cfg.OperationTimeout))
	fmt.Fprintf(w, "Batch delay:\t%v\n", time.Duration(cfg.BatchDelay))
	fmt.Fprintf(w, "Throttle threshold:\t%v\n", time.Duration(cfg.ThrottleThreshold))
	fmt.Fprintf(w, "Adapt interval:\t%v\n", time.Duration(cfg.AdaptInterval))
}

// ShowGroups displays all configured sync groups.
func ShowGroups(groups []client.Group) {
	if len(groups) == 0 {
		if JSONOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No sync groups configured")
		}
		return
	}

	if JSONOutput {
		printJSON(groups)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tNAME\tVIEWPORTS\tTYPES\tPRIORITY\tACTIVE")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%t\n",
			g.ID, g.Name, len(g.ViewportIDs),
			strings.Join(g.SyncTypes, ","), g.Priority, g.IsActive)
	}
}

// ShowGroupInfo displays one group's configuration and rolling performance.
func ShowGroupInfo(info *client.GroupInfoResponse) {
	if JSONOutput {
		printJSON(info)
		return
	}

	g := info.Group
	perf := info.Performance
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "ID:\t%s\n", g.ID)
	fmt.Fprintf(w, "Name:\t%s\n", g.Name)
	fmt.Fprintf(w, "Viewports:\t%s\n", strings.Join(g.ViewportIDs, ", "))
	fmt.Fprintf(w, "Sync types:\t%s\n", strings.Join(g.SyncTypes, ", "))
	fmt.Fprintf(w, "Priority:\t%d\n", g.Priority)
	fmt.Fprintf(w, "Active:\t%t\n", g.IsActive)
	fmt.Fprintf(w, "Tolerate failures:\t%t\n", g.Constraints.TolerateFailures)
	fmt.Fprintf(w, "Require consensus:\t%t\n", g.Constraints.RequireConsensus)
	fmt.Fprintf(w, "Batch operations:\t%t\n", g.Constraints.BatchOperations)
	if g.Constraints.MaxLatency > 0 {
		fmt.Fprintf(w, "Max latency:\t%v\n", time.Duration(g.Constraints.MaxLatency))
	}
	fmt.Fprintf(w, "Success rate:\t%.1f%%\n", perf.SuccessRate*100)
	fmt.Fprintf(w, "Average latency:\t%v\n", time.Duration(perf.AverageLatency))
	fmt.Fprintf(w, "Operations/sec:\t%.1f\n", perf.OperationsPerSecond)
	if !perf.LastSyncTime.IsZero() {
		fmt.Fprintf(w, "Last sync:\t%s\n", humanize.Time(perf.LastSyncTime))
	}
}

// ShowOperationAccepted displays an asynchronous submission acknowledgement.
func ShowOperationAccepted(accepted *client.OperationAccepted) {
	if JSONOutput {
		printJSON(accepted)
		return
	}
	fmt.Printf("Operation %s accepted\n", accepted.OperationID)
}

// ShowOperationResult displays the terminal result of a waited submission.
func ShowOperationResult(result *client.OperationResult) {
	if JSONOutput {
		printJSON(result)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Operation:\t%s\n", result.OperationID)
	fmt.Fprintf(w, "Status:\t%s\n", result.Status)
	fmt.Fprintf(w, "Latency:\t%.2fms\n", result.LatencyMs)
	for viewportID, errMsg := range result.TargetErrors {
		fmt.Fprintf(w, "Failed target:\t%s (%s)\n", viewportID, errMsg)
	}
	if result.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", result.Error)
	}
}
