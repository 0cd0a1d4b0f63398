package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydroalert/app"
	"github.com/kilianp07/hydroalert/core/model"
)

var district string

var villagesCmd = &cobra.Command{
	Use:   "villages",
	Short: "Village queries",
}

var villagesListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List villages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			v, err := e.Villages(ctx, district)
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

var villagesPrioritiesCmd = &cobra.Command{
	Use:   "priorities",
	Short: "Rank villages by dispatch priority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			ranked, err := e.Priorities(ctx, district)
			if err != nil {
				return err
			}
			return printJSON(cmd, ranked)
		})
	},
}

var villagesCriticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "List villages above the alert threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			crit, err := e.CriticalVillages(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, crit)
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the dashboard snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			s, err := e.Summary(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		})
	},
}

var tankerStatus string

var tankersCmd = &cobra.Command{
	Use:   "tankers",
	Short: "Fleet queries and maintenance",
}

var tankersListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tankers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status *model.TankerStatus
		if tankerStatus != "" {
			st, err := model.ParseTankerStatus(tankerStatus)
			if err != nil {
				return err
			}
			status = &st
		}
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			t, err := e.Tankers(ctx, status)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		})
	},
}

var maintenanceOff bool

var tankersMaintenanceCmd = &cobra.Command{
	Use:   "maintenance <tanker-id>",
	Short: "Put an available tanker in maintenance (or back with --off)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			t, err := e.SetMaintenance(ctx, args[0], !maintenanceOff)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <dataset.json>",
	Short: "Import villages, tankers and environmental records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := app.LoadDataset(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			rep, err := e.Import(ctx, ds)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{villagesListCmd, villagesPrioritiesCmd} {
		c.Flags().StringVar(&district, "district", "", "restrict to one district")
	}
	villagesCmd.AddCommand(villagesListCmd, villagesPrioritiesCmd, villagesCriticalCmd)
	tankersListCmd.Flags().StringVar(&tankerStatus, "status", "", "Available, En_Route or Maintenance")
	tankersMaintenanceCmd.Flags().BoolVar(&maintenanceOff, "off", false, "return the tanker to Available")
	tankersCmd.AddCommand(tankersListCmd, tankersMaintenanceCmd)
	rootCmd.AddCommand(villagesCmd, summaryCmd, tankersCmd, importCmd)
}
