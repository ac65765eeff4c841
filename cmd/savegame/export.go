package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justapithecus/savegame/savegame"
	"github.com/justapithecus/savegame/savegame/s3"
)

type exportFlags struct {
	out      string
	bucket   string
	prefix   string
	codec    string
	compress string
	id       string
	chunks   []string
	decoded  bool
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write every chunk to a directory or bucket, one file per chunk",
		Long: `Export writes one file per table chunk plus a manifest.json describing
the export, then prints the manifest.

S3 settings not given as flags are read from SAVEGAME_S3_BUCKET,
SAVEGAME_S3_PREFIX, SAVEGAME_S3_REGION, SAVEGAME_S3_ENDPOINT,
SAVEGAME_S3_ACCESS_KEY and SAVEGAME_S3_SECRET_KEY.

Example:
  savegame export autosave.sav --out ./exports --codec parquet
  savegame export autosave.sav --s3-bucket saves --compress zstd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, args[0], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.out, "out", "o", "", "Output directory (must exist)")
	flags.StringVar(&f.bucket, "s3-bucket", getenv("SAVEGAME_S3_BUCKET", ""), "Destination S3 bucket")
	flags.StringVar(&f.prefix, "s3-prefix", getenv("SAVEGAME_S3_PREFIX", ""), "Key prefix inside the bucket")
	flags.StringVar(&f.codec, "codec", "jsonl", "Chunk file codec: json, jsonl or parquet")
	flags.StringVar(&f.compress, "compress", "noop", "Chunk file compression: noop, gzip or zstd")
	flags.StringVar(&f.id, "id", "", "Export id (default: random UUID)")
	flags.StringSliceVarP(&f.chunks, "chunk", "c", nil, "Only export these chunk ids (repeatable)")
	flags.BoolVar(&f.decoded, "decoded", false, "File is an already-decompressed chunk stream without header")
	cmd.MarkFlagsMutuallyExclusive("out", "s3-bucket")
	return cmd
}

func (a *app) runExport(cmd *cobra.Command, file string, f exportFlags) error {
	ctx := cmd.Context()
	if f.out == "" && f.bucket == "" {
		return errors.New("one of --out or --s3-bucket is required")
	}

	codec, err := savegame.CodecByName(f.codec)
	if err != nil {
		return err
	}
	compressor, err := savegame.CompressorByName(f.compress)
	if err != nil {
		return err
	}
	ids, err := parseChunkIDs(f.chunks)
	if err != nil {
		return err
	}

	var loadOpts []savegame.Option
	if len(ids) > 0 {
		loadOpts = append(loadOpts, savegame.WithChunks(ids...))
	}
	table, header, err := a.loadFile(ctx, file, f.decoded, loadOpts...)
	if err != nil {
		return err
	}

	store, err := a.exportStore(ctx, f)
	if err != nil {
		return err
	}

	opts := []savegame.Option{
		savegame.WithLogger(a.logger),
		savegame.WithCodec(codec),
		savegame.WithCompressor(compressor),
		savegame.WithExportID(f.id),
	}
	if header != nil {
		opts = append(opts, savegame.WithSaveInfo(*header))
	}
	m, err := savegame.Export(ctx, table, store, opts...)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func (a *app) exportStore(ctx context.Context, f exportFlags) (savegame.Store, error) {
	if f.out != "" {
		return savegame.NewFS(f.out)
	}
	client, err := a.newS3API(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return s3.New(client, s3.Config{Bucket: f.bucket, Prefix: f.prefix})
}

// newS3APIFromEnv builds an S3 client from SAVEGAME_S3_* variables. A
// custom endpoint implies path-style addressing, as MinIO and LocalStack
// expect.
func newS3APIFromEnv(ctx context.Context) (s3.API, error) {
	endpoint := getenv("SAVEGAME_S3_ENDPOINT", "")
	client, err := s3.NewClient(ctx, s3.ClientConfig{
		Region:          getenv("SAVEGAME_S3_REGION", "us-east-1"),
		Endpoint:        endpoint,
		UsePathStyle:    endpoint != "",
		AccessKeyID:     getenv("SAVEGAME_S3_ACCESS_KEY", ""),
		SecretAccessKey: getenv("SAVEGAME_S3_SECRET_KEY", ""),
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
