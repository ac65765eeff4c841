package savegame

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// loadConfig holds the resolved configuration for Load and Open.
type loadConfig struct {
	logger *slog.Logger
	keep   map[ChunkID]bool
	strict bool
}

// exportConfig holds the resolved configuration for Export.
type exportConfig struct {
	logger     *slog.Logger
	keep       map[ChunkID]bool
	codec      Codec
	compressor Compressor
	exportID   string
	header     *Header
}

// Option configures loading or exporting.
// Options implement methods for the operations they support.
// Using an option with an unsupported operation returns an error.
type Option interface {
	applyLoad(*loadConfig) error
	applyExport(*exportConfig) error
}

// ErrOptionNotValidForLoad indicates an option was passed to Load or Open
// that only applies to Export.
var ErrOptionNotValidForLoad = errors.New("option not valid for load")

// ErrOptionNotValidForExport indicates an option was passed to Export that
// only applies to Load and Open.
var ErrOptionNotValidForExport = errors.New("option not valid for export")

// discardLogger is the default logger: decoding is silent unless a logger
// is supplied.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newLoadConfig(opts []Option) (*loadConfig, error) {
	cfg := &loadConfig{logger: discardLogger}
	for _, opt := range opts {
		if err := opt.applyLoad(cfg); err != nil {
			return nil, fmt.Errorf("savegame: %w", err)
		}
	}
	if cfg.logger == nil {
		return nil, errors.New("savegame: logger must not be nil")
	}
	return cfg, nil
}

// wants reports whether chunk id is kept in the result.
func (c *loadConfig) wants(id ChunkID) bool {
	return c.keep == nil || c.keep[id]
}

// -----------------------------------------------------------------------------
// Shared options
// -----------------------------------------------------------------------------

// loggerOption implements Option for WithLogger.
type loggerOption struct {
	logger *slog.Logger
}

// WithLogger sets the logger receiving per-chunk debug records.
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return &loggerOption{logger: l}
}

func (o *loggerOption) applyLoad(cfg *loadConfig) error {
	cfg.logger = o.logger
	return nil
}

func (o *loggerOption) applyExport(cfg *exportConfig) error {
	cfg.logger = o.logger
	return nil
}

// chunksOption implements Option for WithChunks.
type chunksOption struct {
	ids []ChunkID
}

// WithChunks restricts the result to the listed chunks. Every chunk is
// still decoded, since chunk boundaries are only found by decoding; the
// others are dropped afterwards. For Export it selects the chunks written.
// Default: all chunks.
func WithChunks(ids ...ChunkID) Option {
	return &chunksOption{ids: ids}
}

func (o *chunksOption) set() map[ChunkID]bool {
	keep := make(map[ChunkID]bool, len(o.ids))
	for _, id := range o.ids {
		keep[id] = true
	}
	return keep
}

func (o *chunksOption) applyLoad(cfg *loadConfig) error {
	cfg.keep = o.set()
	return nil
}

func (o *chunksOption) applyExport(cfg *exportConfig) error {
	cfg.keep = o.set()
	return nil
}

// -----------------------------------------------------------------------------
// Load options
// -----------------------------------------------------------------------------

// strictOption implements Option for WithStrictLengths (load-only).
type strictOption struct {
	strict bool
}

// WithStrictLengths makes every table entry and schema block consume
// exactly the bytes its length prefix announces; any mismatch fails with
// ErrFormat. Default: false, lengths are not validated.
func WithStrictLengths(strict bool) Option {
	return &strictOption{strict: strict}
}

func (o *strictOption) applyLoad(cfg *loadConfig) error {
	cfg.strict = o.strict
	return nil
}

func (o *strictOption) applyExport(*exportConfig) error {
	return fmt.Errorf("WithStrictLengths: %w", ErrOptionNotValidForExport)
}

// -----------------------------------------------------------------------------
// Export options
// -----------------------------------------------------------------------------

// codecOption implements Option for WithCodec (export-only).
type codecOption struct {
	codec Codec
}

// WithCodec sets the codec chunks are exported with.
// Default: NewJSONLCodec().
func WithCodec(c Codec) Option {
	return &codecOption{codec: c}
}

func (o *codecOption) applyLoad(*loadConfig) error {
	return fmt.Errorf("WithCodec: %w", ErrOptionNotValidForLoad)
}

func (o *codecOption) applyExport(cfg *exportConfig) error {
	cfg.codec = o.codec
	return nil
}

// compressorOption implements Option for WithCompressor (export-only).
type compressorOption struct {
	compressor Compressor
}

// WithCompressor sets the compressor applied to exported chunk files.
// Default: NewNoOpCompressor().
func WithCompressor(c Compressor) Option {
	return &compressorOption{compressor: c}
}

func (o *compressorOption) applyLoad(*loadConfig) error {
	return fmt.Errorf("WithCompressor: %w", ErrOptionNotValidForLoad)
}

func (o *compressorOption) applyExport(cfg *exportConfig) error {
	cfg.compressor = o.compressor
	return nil
}

// exportIDOption implements Option for WithExportID (export-only).
type exportIDOption struct {
	id string
}

// WithExportID sets the export id, which is also the directory every
// exported file is written under. Default: a random UUID.
func WithExportID(id string) Option {
	return &exportIDOption{id: id}
}

func (o *exportIDOption) applyLoad(*loadConfig) error {
	return fmt.Errorf("WithExportID: %w", ErrOptionNotValidForLoad)
}

func (o *exportIDOption) applyExport(cfg *exportConfig) error {
	cfg.exportID = o.id
	return nil
}

// saveInfoOption implements Option for WithSaveInfo (export-only).
type saveInfoOption struct {
	header Header
}

// WithSaveInfo records the savegame's header in the export manifest.
func WithSaveInfo(h Header) Option {
	return &saveInfoOption{header: h}
}

func (o *saveInfoOption) applyLoad(*loadConfig) error {
	return fmt.Errorf("WithSaveInfo: %w", ErrOptionNotValidForLoad)
}

func (o *saveInfoOption) applyExport(cfg *exportConfig) error {
	h := o.header
	cfg.header = &h
	return nil
}
