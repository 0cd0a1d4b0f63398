package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydroalert/app"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Water stress scoring",
}

var stressRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Recompute every village WSI and evaluate alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			rep, err := e.RunStressBatch(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

var simulateWSI float64

var stressSimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Force the least stressed village into drought and run the alert path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			rep, err := e.SimulateDrought(ctx, simulateWSI)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

var stressWSICmd = &cobra.Command{
	Use:   "wsi <village-id>",
	Short: "Show the WSI breakdown of one village without persisting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			f, err := e.ComputeWSI(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, f)
		})
	},
}

func init() {
	stressSimulateCmd.Flags().Float64Var(&simulateWSI, "wsi", 0, "forced WSI (configured simulate_wsi when 0)")
	stressCmd.AddCommand(stressRunCmd, stressSimulateCmd, stressWSICmd)
	rootCmd.AddCommand(stressCmd)
}
