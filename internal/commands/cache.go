package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command
func NewCacheCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Compile the route file into the route cache",
		Long: `Registers the routes of the configured route file, compiles them and writes
the result to the cache path. Routes with inline handlers cannot be cached.`,
		Example: `  routes cache -c waypoint.yaml --cache-path bootstrap/cache/routes.bin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if err := a.store.Clear(); err != nil {
				return err
			}

			if err := a.declare(a.router); err != nil {
				return err
			}

			table, err := a.router.Compile()
			if err != nil {
				return fmt.Errorf("unable to cache routes: %w", err)
			}

			if err := a.store.Save(table); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Routes cached successfully: %d routes written to %s\n",
				table.Count(), a.store.Path())
			return nil
		},
	}
}

// NewClearCommand creates the clear command
func NewClearCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the route cache file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if err := a.store.Clear(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Route cache cleared")
			return nil
		},
	}
}
