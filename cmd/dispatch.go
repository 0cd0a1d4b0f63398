package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydroalert/app"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/pkg/export"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Tanker dispatch operations",
}

var dispatchRouteCmd = &cobra.Command{
	Use:   "route <tanker-id> <village-id>...",
	Short: "Plan a route for a tanker and create its dispatch logs",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			res, err := e.Dispatch(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var planTanker string

var dispatchPlanCmd = &cobra.Command{
	Use:   "plan <village-id>...",
	Short: "Preview a route without dispatching",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			plan, err := e.PlanRoute(ctx, planTanker, args)
			if err != nil {
				return err
			}
			return printJSON(cmd, plan)
		})
	},
}

var manualVillage string

var dispatchManualCmd = &cobra.Command{
	Use:   "manual --village <village-id> <tanker-id>...",
	Short: "Send one or more tankers to a single village",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if manualVillage == "" {
			return fmt.Errorf("--village is required")
		}
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			logs, err := e.ManualDispatch(ctx, args, manualVillage)
			if err != nil {
				return err
			}
			return printJSON(cmd, logs)
		})
	},
}

var dispatchCompleteCmd = &cobra.Command{
	Use:   "complete <log-id>",
	Short: "Mark a dispatch log delivered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			l, err := e.CompleteDispatch(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, l)
		})
	},
}

var autoStops int

var dispatchAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Route the first available tanker through the highest priority villages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			res, err := e.AutoAssign(ctx, autoStops)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

func init() {
	dispatchPlanCmd.Flags().StringVar(&planTanker, "tanker", "", "start from this tanker's position instead of the depot")
	dispatchManualCmd.Flags().StringVar(&manualVillage, "village", "", "destination village id")
	dispatchAutoCmd.Flags().IntVar(&autoStops, "stops", 0, "number of villages (configured auto_assign_stops when 0)")
	dispatchCmd.AddCommand(dispatchRouteCmd, dispatchPlanCmd, dispatchManualCmd, dispatchCompleteCmd, dispatchAutoCmd)
	rootCmd.AddCommand(dispatchCmd)
}

var (
	logsFormat string
	logsTanker string
)

var dispatchLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Export dispatch logs as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			logs, err := e.DispatchLogs(ctx, store.DispatchLogFilter{TankerID: logsTanker})
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), logsFormat, logs)
		})
	},
}

func init() {
	dispatchLogsCmd.Flags().StringVar(&logsFormat, "format", export.FormatJSON, "json or csv")
	dispatchLogsCmd.Flags().StringVar(&logsTanker, "tanker", "", "restrict to one tanker")
	dispatchCmd.AddCommand(dispatchLogsCmd)
}
