package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yockey88/DotOther/internal/cli/ui"
	"github.com/yockey88/DotOther/internal/config"
	"github.com/yockey88/DotOther/internal/snapshot"
)

// NewSnapshotCommand creates the snapshot command group
func NewSnapshotCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Persist and inspect type metadata",
		Long: `Capture the metadata of loaded assemblies into the configured snapshot
store (memory, redis or sqlite) and read it back without loading the
assembly again.`,
	}

	cmd.AddCommand(newSnapshotSaveCommand(opts))
	cmd.AddCommand(newSnapshotShowCommand(opts))
	cmd.AddCommand(newSnapshotDropCommand(opts))

	return cmd
}

func newSnapshotSaveCommand(opts *globalOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "save [manifest...]",
		Short: "Load assemblies and store their metadata",
		Example: `  # Save to the store configured in dotother.yaml
  dotother snapshot save sample.toml

  # Keep the snapshot for a day
  dotother snapshot save --ttl 24h sample.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.load(args); err != nil {
				return err
			}

			warnEphemeral(cmd, s.cfg.Snapshot.Backend, s.noColor)
			store, err := snapshot.Open(s.cfg.Snapshot)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, asm := range s.assemblies {
				snap := snapshot.Build(asm)
				if err := snapshot.Save(cmd.Context(), store, snap, ttl); err != nil {
					return err
				}
				ui.WriteSuccess(cmd.OutOrStdout(),
					fmt.Sprintf("Saved %s (%d types) to %s store", snap.Assembly, len(snap.Types), s.cfg.Snapshot.Backend),
					s.noColor)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Snapshot lifetime (default: snapshot.ttl from config)")

	return cmd
}

func newSnapshotShowCommand(opts *globalOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "show <assembly>",
		Short: "Print a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			warnEphemeral(cmd, cfg.Snapshot.Backend, opts.noColor)
			store, err := snapshot.Open(cfg.Snapshot)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := snapshot.Load(cmd.Context(), store, args[0])
			if errors.Is(err, snapshot.ErrMiss) {
				ui.WriteError(cmd.ErrOrStderr(), ui.ErrorOptions{
					Level:   ui.ErrorLevelWarning,
					Context: "no snapshot",
					Problem: fmt.Sprintf("Nothing stored for assembly '%s' in the %s store.", args[0], cfg.Snapshot.Backend),
					HelpCommands: []string{
						"Save one first: dotother snapshot save <manifest>",
					},
					NoColor: opts.noColor,
				})
				return errReported
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if typeName == "" {
				renderSnapshot(out, snap, opts.noColor)
				return nil
			}

			t, ok := snap.Type(typeName)
			if !ok {
				names := make([]string, len(snap.Types))
				for i, t := range snap.Types {
					names[i] = t.Name
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFoundError(typeName, names, opts.noColor))
				return errReported
			}
			renderTypeSnapshot(out, t, opts.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Show only the named type")

	return cmd
}

func newSnapshotDropCommand(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "drop [assembly...]",
		Short: "Remove stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name an assembly or pass --all")
			}

			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			store, err := snapshot.Open(cfg.Snapshot)
			if err != nil {
				return err
			}
			defer store.Close()

			if all {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				ui.WriteSuccess(cmd.OutOrStdout(), "Dropped all snapshots", opts.noColor)
				return nil
			}
			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					return err
				}
				ui.WriteSuccess(cmd.OutOrStdout(), "Dropped "+name, opts.noColor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Drop every snapshot under the configured prefix")

	return cmd
}

// warnEphemeral notes that the memory store lives only as long as this
// process, so nothing saved by one command is visible to the next.
func warnEphemeral(cmd *cobra.Command, backend string, noColor bool) {
	if backend != config.BackendMemory && backend != "" {
		return
	}
	ui.WriteError(cmd.ErrOrStderr(), ui.ErrorOptions{
		Level:   ui.ErrorLevelWarning,
		Context: "memory store",
		Problem: "Snapshots in the memory store are discarded when this command exits.",
		HelpCommands: []string{
			"Persist them with snapshot.backend: sqlite (or redis) in dotother.yaml",
			"Or set DOTOTHER_SNAPSHOT_BACKEND=sqlite",
		},
		NoColor: noColor,
	})
}

func renderSnapshot(w io.Writer, snap *snapshot.Snapshot, noColor bool) {
	details := ui.NewDetails(w, snap.Assembly, noColor)
	details.Add("Schema", snap.Schema)
	details.Add("Types", len(snap.Types))
	details.Render()

	table := ui.NewTable(w, noColor, "Handle", "Type", "Base", "Kind", "Size", "Fields", "Properties", "Methods")
	for _, t := range snap.Types {
		table.AddRow(
			strconv.Itoa(int(t.Handle)),
			t.Name,
			t.Base,
			t.Kind,
			strconv.Itoa(int(t.Size)),
			strconv.Itoa(len(t.Fields)),
			strconv.Itoa(len(t.Properties)),
			strconv.Itoa(len(t.Methods)),
		)
	}
	table.Render()
}

func renderTypeSnapshot(w io.Writer, t snapshot.TypeSnapshot, noColor bool) {
	details := ui.NewDetails(w, t.Name, noColor)
	details.Add("Qualified", t.AsmQualifiedName)
	details.Add("Base", t.Base)
	details.Add("Kind", t.Kind)
	details.Add("Size", t.Size)
	if t.IsArray {
		details.Add("Element", t.Element)
	}
	details.Render()

	members := ui.NewTable(w, noColor, "Member", "Name", "Type", "Access")
	for _, f := range t.Fields {
		members.AddRow("field", f.Name, f.Type, f.Access)
	}
	for _, p := range t.Properties {
		members.AddRow("property", p.Name, p.Type)
	}
	for _, m := range t.Methods {
		members.AddRow("method", m.Name, fmt.Sprintf("%s(%s)", m.Returns, strings.Join(m.Params, ", ")), m.Access)
	}
	if members.Len() > 0 {
		members.Render()
	}
}
