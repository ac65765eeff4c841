package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/justapithecus/savegame/savegame"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newDumpCmd(a *app) *cobra.Command {
	var (
		chunks  []string
		decoded bool
		pretty  bool
	)
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the decoded chunks as JSON",
		Long: `Print every table chunk of a savegame as one JSON object keyed by
chunk id.

Example:
  savegame dump autosave.sav --chunk LGRP --chunk CITY`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseChunkIDs(chunks)
			if err != nil {
				return err
			}
			var opts []savegame.Option
			if len(ids) > 0 {
				opts = append(opts, savegame.WithChunks(ids...))
			}

			table, _, err := a.loadFile(cmd.Context(), args[0], decoded, opts...)
			if err != nil {
				return err
			}

			var data []byte
			if pretty {
				data, err = json.MarshalIndent(table, "", "  ")
			} else {
				data, err = json.Marshal(table)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&chunks, "chunk", "c", nil, "Only print these chunk ids (repeatable)")
	cmd.Flags().BoolVar(&decoded, "decoded", false, "File is an already-decompressed chunk stream without header")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return cmd
}
