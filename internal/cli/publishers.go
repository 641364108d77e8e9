package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skillindex/pkg/config"
	"github.com/matzehuels/skillindex/pkg/discover"
)

// publishersCommand creates the command printing the trusted publishers.
func (c *CLI) publishersCommand() *cobra.Command {
	var (
		file    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "publishers",
		Short: "Print the effective trusted-publisher list",
		Long: `Publishers prints the trusted-publisher list a run would use: the --file
argument, SKILLINDEX_PUBLISHERS, $XDG_CONFIG_HOME/skillindex/publishers.toml
or the built-in list, in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = strings.TrimSpace(c.env.Getenv(config.EnvPublishers))
			}
			pubs, source, err := discover.LoadPublishers(file)
			if err != nil {
				return err
			}

			out := c.stdout(cmd)
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(pubs)
			}
			printPublishers(out, pubs)
			printDetail(out, "Source: %s", source)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "publishers TOML file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")

	return cmd
}
