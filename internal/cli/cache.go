package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rohmanhakim/prompt-loader/pkg/urlutil"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the template cache of a running server.",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached template.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteCache(cmd, "")
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "invalidate <key>",
		Short: "Drop one cached template so the next load fetches it again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteCache(cmd, args[0])
		},
	})

	return cacheCmd
}

// deleteCache calls the cache API of the server at the configured base URL.
// An empty key clears the whole cache.
func deleteCache(cmd *cobra.Command, key string) error {
	out := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}

	endpoint := urlutil.JoinPath(cfg.BaseURL(), "/api/cache", key)
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodDelete, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", cfg.UserAgent())

	client := &http.Client{Timeout: cfg.Timeout()}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", endpoint.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s %s", req.Method, endpoint.Path, resp.Status, strings.TrimSpace(string(body)))
	}

	if key == "" {
		out.Success("cache cleared")
	} else {
		out.Success("invalidated %s", key)
	}
	return nil
}
