package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rohmanhakim/prompt-loader/internal/build"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a templates directory with a render and cache API.",
		Long: `Serve the templates directory under the configured path prefix and expose
the render, preview and cache endpoints. Templates are fetched back from
this same server through --base-url, so both should point at each other.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default \":28888\")")
	serveCmd.Flags().StringVar(&templatesDir, "templates-dir", "", "directory holding the templates (default \"prompts\")")

	return serveCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	out := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}

	recorder := metadata.NewRecorder(0)
	store := newStore(cfg, recorder)
	srv := server.New(store, recorder, cfg.TemplatesDir(), cfg.PathPrefix())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := cfg.BaseURL()
	out.Success("serving %s on %s", cfg.TemplatesDir(), cfg.ListenAddr())
	out.Info("fetching from", baseURL.String()+cfg.PathPrefix())
	out.Info("cache", cfg.CacheBackend())
	out.Info("version", build.Details())

	return srv.ListenAndServe(ctx, cfg.ListenAddr())
}
