package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justapithecus/savegame/savegame"
	"github.com/justapithecus/savegame/savegame/s3"
)

// app carries state shared by every command.
type app struct {
	verbose bool
	logger  *slog.Logger

	// newS3API builds the client used by export --s3-bucket.
	newS3API func(ctx context.Context) (s3.API, error)
}

func newApp() *app {
	return &app{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newS3API: newS3APIFromEnv,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "savegame",
		Short: "Inspect and export chunk-based savegames",
		Long: `savegame decodes the chunked, self-describing table format of
OpenTTD-style savegames into structured records.

Files may be uncompressed (OTTN) or compressed with zlib (OTTZ),
LZMA (OTTX) or LZO (OTTD).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if a.verbose {
				a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				}))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every decoded chunk to stderr")

	root.AddCommand(
		newDumpCmd(a),
		newChunksCmd(a),
		newExportCmd(a),
	)
	return root
}

// loadFile decodes the savegame at file. With decoded set the file holds
// the already-decompressed chunk stream and there is no header.
func (a *app) loadFile(ctx context.Context, file string, decoded bool, opts ...savegame.Option) (*savegame.ChunkTable, *savegame.Header, error) {
	opts = append(opts, savegame.WithLogger(a.logger))

	if decoded {
		f, err := os.Open(file)
		if err != nil {
			return nil, nil, err
		}
		defer func() { _ = f.Close() }()

		src, err := savegame.NewSeekSource(f)
		if err != nil {
			return nil, nil, err
		}
		table, err := savegame.Load(src, opts...)
		if err != nil {
			return nil, nil, err
		}
		return table, nil, nil
	}

	store, err := savegame.NewFS(filepath.Dir(file))
	if err != nil {
		return nil, nil, fmt.Errorf("savegame: %s: %w", file, err)
	}
	return savegame.Open(ctx, store, filepath.Base(file), opts...)
}

// parseChunkIDs converts --chunk flag values.
func parseChunkIDs(values []string) ([]savegame.ChunkID, error) {
	ids := make([]savegame.ChunkID, 0, len(values))
	for _, v := range values {
		id, err := savegame.ParseChunkID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
