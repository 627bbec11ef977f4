// Package commands implements the routes command line tool.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the routes command tree.
func NewRootCommand(version string) *cobra.Command {
	global := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect and cache waypoint routes",
		Long: `Lists routes declared in a route file and manages the compiled route cache
used to boot routers without evaluating route declarations.

Configuration is read from the --config file and WAYPOINT_ environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&global.ConfigFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&global.RoutesFile, "routes", "r", "", "Route file (overrides routes.file)")
	rootCmd.PersistentFlags().StringVar(&global.CachePath, "cache-path", "", "Route cache file (overrides cache.path)")

	rootCmd.AddCommand(
		NewListCommand(global),
		NewCacheCommand(global),
		NewClearCommand(global),
	)

	return rootCmd
}
