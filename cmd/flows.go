// File: cmd/flows.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/flowrunner/internal/config"
	"github.com/xkilldash9x/flowrunner/internal/flow"
)

func newFlowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flows [name...]",
		Short: "List the available flows and the steps they would run",
		Long: `List the available flows and the steps they would run with the current
configuration. No browser is started. Secret values are masked.`,
		ValidArgs: flow.Names(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = flow.Names()
			}
			return describeFlows(cmd.OutOrStdout(), cfg, names)
		},
	}
}

func describeFlows(w io.Writer, cfg config.Interface, names []string) error {
	for i, name := range names {
		plan, err := flow.Build(name, cfg)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (keep open: %t)\n", plan.Name, plan.KeepOpen)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for j, step := range plan.Steps {
			fmt.Fprintf(tw, "  %d.\t%s\t%s\t%s\n", j+1, step.Action, step.Name, stepDetail(step))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func stepDetail(s flow.Step) string {
	switch s.Action {
	case flow.ActionNavigate:
		return s.URL
	case flow.ActionFill:
		return fmt.Sprintf("%s <- %q", s.Locator, s.DisplayValue())
	case flow.ActionClick:
		return s.Locator.String()
	case flow.ActionWaitURLChange:
		if s.URL == "" {
			return "leave the page the previous click started on"
		}
		return "leave " + s.URL
	case flow.ActionSettle:
		return s.Duration.String()
	default:
		return ""
	}
}
