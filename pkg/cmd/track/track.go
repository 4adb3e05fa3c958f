package track

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kartrace/kartrace-go/pkg/physics/aabb"
	"github.com/kartrace/kartrace-go/pkg/track"
	"github.com/kartrace/kartrace-go/pkg/track/catalog"
)

func NewTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "commands for track descriptors",
	}
	cmd.AddCommand(newCheckCmd(), newListCmd())
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|trackname>",
		Short: "parses a descriptor, builds it and prints the layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := LoadDescriptor(args[0])
			if err != nil {
				return err
			}
			return check(cmd.OutOrStdout(), text)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists the built-in tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.Entries()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTITLE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Title)
			}
			return w.Flush()
		},
	}
}

// LoadDescriptor returns the catalog track called name or the content of
// the file name.
func LoadDescriptor(name string) (string, error) {
	text, err := catalog.Lookup(name)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, catalog.ErrUnknownTrack) {
		return "", err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func check(out io.Writer, text string) error {
	t, buildErr := track.Build(aabb.New(), text)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLINE\tKIND\tFACING\tX\tY\tZ\tRISE")
	for _, p := range t.Pieces {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
			p.Index, p.LineNo, p.Kind, p.Facing,
			p.Position.X, p.Position.Y, p.Position.Z, p.Rise)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "laps: %d, checkpoints: %d\n", t.Laps, len(t.Checkpoints))
	if buildErr != nil {
		return buildErr
	}
	return t.Validate()
}
