package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skillindex/internal/api"
	"github.com/matzehuels/skillindex/pkg/reconcile"
)

// serveCommand creates the serve command exposing runs over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		timeout    time.Duration
		publishers string
		noCache    bool
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /v1/index for scheduled invocations",
		Long: `Serve starts an HTTP server. Each POST /v1/index performs one run with the
options in the JSON body and responds with the run result. Overlapping
requests are rejected with 409.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := c.openDeps(ctx, depOptions{noCache: noCache, publishers: publishers, store: true})
			if err != nil {
				return err
			}
			defer d.Close()

			srv, err := api.New(c.runner(d, batchSize), c.Logger, timeout)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", api.DefaultRunTimeout, "per-run timeout")
	cmd.Flags().StringVar(&publishers, "publishers", "", "trusted publishers TOML file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the repository metadata cache")
	cmd.Flags().IntVar(&batchSize, "batch-size", reconcile.DefaultBatchSize, "records per store lookup")

	return cmd
}
