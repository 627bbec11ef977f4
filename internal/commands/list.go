package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vitalvas/waypoint/mux"
	"gopkg.in/yaml.v3"
)

// ListOptions holds options for the list command
type ListOptions struct {
	Format string
	Method string
	Name   string
	Path   string
}

// routeEntry is one line of the route listing.
type routeEntry struct {
	Domain     string   `yaml:"domain,omitempty"`
	Methods    []string `yaml:"methods"`
	URI        string   `yaml:"uri"`
	Name       string   `yaml:"name"`
	Action     string   `yaml:"action"`
	Middleware []string `yaml:"middleware,omitempty"`
	Fallback   bool     `yaml:"fallback,omitempty"`
}

// NewListCommand creates the list command
func NewListCommand(global *GlobalOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all registered routes",
		Long: `Lists the routes of the configured route file, or of the route cache when
caching is enabled and a cache exists. Middleware is shown fully resolved.`,
		Example: `  # Table of all routes
  routes list -c waypoint.yaml

  # Only routes answering POST under /api, as YAML
  routes list --method POST --path /api -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "output", "o", "table", "Output format (table|yaml)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "Only routes answering this method")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Only routes whose name contains this text")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Only routes whose URI contains this text")

	return cmd
}

func runList(cmd *cobra.Command, global *GlobalOptions, opts *ListOptions) error {
	switch opts.Format {
	case "table", "yaml", "yml":
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, yaml)", opts.Format)
	}

	a, err := newApp(global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if _, err := a.load(cmd.Context()); err != nil {
		return err
	}

	entries, err := collectRoutes(a.router, opts)
	if err != nil {
		return err
	}

	if opts.Format == "table" {
		return writeTable(cmd.OutOrStdout(), entries)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return enc.Close()
}

func collectRoutes(r *mux.Router, opts *ListOptions) ([]routeEntry, error) {
	method := strings.ToUpper(opts.Method)

	entries := []routeEntry{}
	err := r.Walk(func(route *mux.Route, router *mux.Router) error {
		if method != "" && !route.HasMethod(method) {
			return nil
		}
		if opts.Name != "" && !strings.Contains(route.Name(), opts.Name) {
			return nil
		}
		if opts.Path != "" && !strings.Contains(route.URI(), opts.Path) {
			return nil
		}

		entries = append(entries, routeEntry{
			Domain:     route.Domain(),
			Methods:    route.Methods(),
			URI:        route.URI(),
			Name:       route.Name(),
			Action:     route.Action(),
			Middleware: router.Resolver().Resolve(route.Middleware(), route.ExcludedMiddleware()),
			Fallback:   route.IsFallback(),
		})
		return nil
	})
	return entries, err
}

func writeTable(w io.Writer, entries []routeEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tMETHOD\tURI\tNAME\tACTION\tMIDDLEWARE")

	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Domain,
			strings.Join(e.Methods, "|"),
			e.URI,
			e.Name,
			e.Action,
			strings.Join(e.Middleware, ","),
		)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nShowing [%d] routes\n", len(entries))
	return err
}
