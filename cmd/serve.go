package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydroalert/api"
	"github.com/kilianp07/hydroalert/app"
	"github.com/kilianp07/hydroalert/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the periodic stress batch and the metrics pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *app.Engine) error {
			cfg := e.Config()
			handler := api.NewRouter(logger.New("api"), e, cfg.API.Token)
			svc, err := app.NewService(e, handler)
			if err != nil {
				return err
			}
			return svc.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
