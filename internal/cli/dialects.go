package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// DialectOutput describes one dialect in JSON output.
type DialectOutput struct {
	Name         string            `json:"name"`
	Priority     int               `json:"priority"`
	Capabilities DialectCapability `json:"capabilities"`
}

// DialectCapability is the JSON form of a dialect's capabilities.
type DialectCapability struct {
	PropertyConstraints bool   `json:"property_constraints"`
	Labels              bool   `json:"labels"`
	Directions          string `json:"directions"`
	Quantifiers         bool   `json:"quantifiers"`
	FilterOps           string `json:"filter_ops"`
	Projection          bool   `json:"projection"`
	OutputNames         bool   `json:"output_names"`
	Parameters          bool   `json:"parameters"`
	Literals            string `json:"literals"`
}

// BackendOutput describes one backend in JSON output.
type BackendOutput struct {
	Name           string `json:"name"`
	VariableLength bool   `json:"variable_length"`
	OutputNames    bool   `json:"output_names"`
	MaxHops        int    `json:"max_hops"`
	EdgeFilters    bool   `json:"edge_filters"`
}

// DialectsResult is the JSON payload of the dialects command.
type DialectsResult struct {
	Dialects []DialectOutput `json:"dialects"`
	Backends []BackendOutput `json:"backends"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dialects",
		Short: "List query dialects and backends",
		Long: `List the registered query dialects in dispatch order, with their
priorities and capabilities, followed by the backends and what they can
render. Priorities reflect --config overrides.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDialects(rootOpts, cmd)
		},
	}
	return cmd
}

func runDialects(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
		TraceID: opts.traceID(),
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrorCode(err), err)
	}
	c, err := opts.newCompiler(cfg)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}

	var result DialectsResult
	for _, info := range c.Dialects() {
		caps := info.Capabilities
		result.Dialects = append(result.Dialects, DialectOutput{
			Name:     string(info.Dialect),
			Priority: info.Priority,
			Capabilities: DialectCapability{
				PropertyConstraints: caps.PropertyConstraints,
				Labels:              caps.Labels,
				Directions:          caps.Directions.String(),
				Quantifiers:         caps.Quantifiers,
				FilterOps:           caps.FilterOps.String(),
				Projection:          caps.Projection,
				OutputNames:         caps.OutputNames,
				Parameters:          caps.Parameters,
				Literals:            caps.LiteralKinds.String(),
			},
		})
	}
	for _, b := range c.Backends() {
		caps, _ := c.Capabilities(b)
		result.Backends = append(result.Backends, BackendOutput{
			Name:           string(b),
			VariableLength: caps.VariableLength,
			OutputNames:    caps.OutputNames,
			MaxHops:        caps.MaxHops,
			EdgeFilters:    caps.EdgeFilters,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputDialectsText(formatter, result)
}

func outputDialectsText(formatter *OutputFormatter, result DialectsResult) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIALECT\tPRIORITY\tQUANTIFIERS\tLABELS\tPARAMETERS\tFILTERS")
	for _, d := range result.Dialects {
		c := d.Capabilities
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			d.Name, d.Priority, yesNo(c.Quantifiers), yesNo(c.Labels), yesNo(c.Parameters), c.FilterOps)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "BACKEND\tVARIABLE LENGTH\tOUTPUT NAMES\tMAX HOPS\tEDGE FILTERS")
	for _, b := range result.Backends {
		maxHops := "unlimited"
		if b.MaxHops > 0 {
			maxHops = fmt.Sprint(b.MaxHops)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			b.Name, yesNo(b.VariableLength), yesNo(b.OutputNames), maxHops, yesNo(b.EdgeFilters))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
