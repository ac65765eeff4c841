package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justapithecus/savegame/savegame"
)

func newChunksCmd(a *app) *cobra.Command {
	var decoded bool
	cmd := &cobra.Command{
		Use:   "chunks <file>",
		Short: "List the table chunks of a savegame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, header, err := a.loadFile(cmd.Context(), args[0], decoded)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if header != nil {
				if _, err := fmt.Fprintf(out, "format %s, version %d\n", header.Format, header.Version); err != nil {
					return err
				}
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tRECORDS")
			for _, c := range table.Chunks() {
				name, ok := savegame.ChunkName(c.ID)
				if !ok {
					name = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, name, c.Kind, len(c.Records))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&decoded, "decoded", false, "File is an already-decompressed chunk stream without header")
	return cmd
}
