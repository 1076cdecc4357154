package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/vizloom-cli/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the processing pipeline over HTTP",
	Example: `  vizloom serve
  vizloom serve --host 0.0.0.0 --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			c.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			c.Port = servePort
		}
		if err := c.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := serverOptions(c)
		srv := server.New(newProcessor(c), opts, logger)
		printSuccess(cmd.ErrOrStderr(), "vizloom %s listening on http://%s", Version, opts.Addr)
		if err := srv.Run(ctx); err != nil {
			return err
		}
		logger.Info("server stopped", zap.String("addr", opts.Addr))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
}
