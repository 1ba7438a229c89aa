package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yockey88/DotOther/internal/cli/ui"
	"github.com/yockey88/DotOther/runtime/hosting"
)

// NewDescribeCommand creates the describe command
func NewDescribeCommand(opts *globalOptions) *cobra.Command {
	var (
		verbose  bool
		typeName string
	)

	cmd := &cobra.Command{
		Use:   "describe [manifest...]",
		Short: "List the types an assembly exposes",
		Long: `Load one or more assemblies and list the types each exposes, with their
base type, primitive kind, size and member counts.

With --type, print the full description of a single type. A type name that
is not found is answered with the closest known names.`,
		Example: `  # List the types of an assembly
  dotother describe sample.toml

  # Describe every type with its members
  dotother describe --verbose sample.toml

  # Describe one type
  dotother describe --type Sample.Player sample.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.load(args); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if typeName != "" {
				t, err := s.lookup(typeName)
				if err != nil {
					return err
				}
				fmt.Fprint(out, hosting.FormatType(t))
				return nil
			}

			for _, asm := range s.assemblies {
				if verbose {
					for _, t := range asm.Types() {
						fmt.Fprintln(out, hosting.FormatType(t))
					}
					continue
				}
				details := ui.NewDetails(out, asm.Name(), s.noColor)
				details.Add("Types", len(asm.Types()))
				details.Add("Status", asm.LoadStatus())
				details.Render()
				renderTypes(out, asm.Types(), s.noColor)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Describe every type with its members")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Describe only the named type")

	return cmd
}

func renderTypes(w io.Writer, types []*hosting.Type, noColor bool) {
	table := ui.NewTable(w, noColor, "Handle", "Type", "Base", "Kind", "Size", "Fields", "Properties", "Methods")
	for _, t := range types {
		base := ""
		if b := t.BaseObject(); b.Valid() {
			base = b.FullName()
		}
		table.AddRow(
			strconv.Itoa(int(t.Handle())),
			t.FullName(),
			base,
			t.ManagedType().String(),
			strconv.Itoa(int(t.Size())),
			strconv.Itoa(len(t.Fields())),
			strconv.Itoa(len(t.Properties())),
			strconv.Itoa(len(t.Methods())),
		)
	}
	table.Render()
}
