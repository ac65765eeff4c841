package savegame

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

const (
	manifestSchemaName    = "savegame-export"
	manifestFormatVersion = "1.0.0"
	manifestFile          = "manifest.json"
)

// Manifest describes the complete contents of an export.
type Manifest struct {
	// SchemaName identifies the manifest layout.
	SchemaName string `json:"schema_name"`

	// FormatVersion is the manifest layout version.
	FormatVersion string `json:"format_version"`

	// ExportID is the directory the export was written under.
	ExportID string `json:"export_id"`

	// CreatedAt is when the export was written.
	CreatedAt time.Time `json:"created_at"`

	// SaveFormat and SaveVersion come from the savegame header, when known.
	SaveFormat  Format `json:"save_format,omitempty"`
	SaveVersion uint16 `json:"save_version,omitempty"`

	// Codec is the name of the codec chunk files were written with.
	Codec string `json:"codec"`

	// Compressor is the name of the compressor applied to chunk files.
	Compressor string `json:"compressor"`

	// Chunks lists the exported chunks in stream order.
	Chunks []ChunkRef `json:"chunks"`
}

// ChunkRef describes one exported chunk file.
type ChunkRef struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Rows      int    `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// ManifestPath returns the path of the manifest of export id.
func ManifestPath(exportID string) string {
	return path.Join(exportID, manifestFile)
}

// Export writes every chunk of table to store, one file per chunk, followed
// by a manifest. Files are laid out as
//
//	<export-id>/<CHUNK><codec ext><compressor ext>
//	<export-id>/manifest.json
//
// The manifest is written last, so its presence marks a complete export.
//
// Defaults: JSONL codec, no compression, a random UUID export id.
func Export(ctx context.Context, table *ChunkTable, store Store, opts ...Option) (*Manifest, error) {
	if table == nil {
		return nil, errors.New("savegame: table is required")
	}
	if store == nil {
		return nil, errors.New("savegame: store is required")
	}

	cfg := &exportConfig{
		logger:     discardLogger,
		codec:      NewJSONLCodec(),
		compressor: NewNoOpCompressor(),
	}
	for _, opt := range opts {
		if err := opt.applyExport(cfg); err != nil {
			return nil, fmt.Errorf("savegame: %w", err)
		}
	}
	switch {
	case cfg.logger == nil:
		return nil, errors.New("savegame: logger must not be nil")
	case cfg.codec == nil:
		return nil, errors.New("savegame: codec must not be nil")
	case cfg.compressor == nil:
		return nil, errors.New("savegame: compressor must not be nil")
	}
	if cfg.exportID == "" {
		cfg.exportID = uuid.NewString()
	}
	if _, err := cleanKey(cfg.exportID, false); err != nil {
		return nil, fmt.Errorf("savegame: export id %q: %w", cfg.exportID, err)
	}

	m := &Manifest{
		SchemaName:    manifestSchemaName,
		FormatVersion: manifestFormatVersion,
		ExportID:      cfg.exportID,
		CreatedAt:     time.Now().UTC(),
		Codec:         cfg.codec.Name(),
		Compressor:    cfg.compressor.Name(),
		Chunks:        []ChunkRef{},
	}
	if cfg.header != nil {
		m.SaveFormat = cfg.header.Format
		m.SaveVersion = cfg.header.Version
	}

	for _, c := range table.chunks {
		if cfg.keep != nil && !cfg.keep[c.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, err := writeChunkFile(ctx, store, cfg, c)
		if err != nil {
			return nil, fmt.Errorf("savegame: export chunk %s: %w", c.ID, err)
		}
		cfg.logger.Debug("chunk exported", "id", ref.ID, "path", ref.Path, "rows", ref.Rows, "bytes", ref.SizeBytes)
		m.Chunks = append(m.Chunks, ref)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("savegame: encode manifest: %w", err)
	}
	if err := store.Put(ctx, ManifestPath(cfg.exportID), bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("savegame: write manifest: %w", err)
	}
	return m, nil
}

func writeChunkFile(ctx context.Context, store Store, cfg *exportConfig, c *Chunk) (ChunkRef, error) {
	filePath := path.Join(cfg.exportID, c.ID.String()+cfg.codec.Extension()+cfg.compressor.Extension())

	var buf bytes.Buffer
	compWriter, err := cfg.compressor.Compress(&buf)
	if err != nil {
		return ChunkRef{}, err
	}
	if err := cfg.codec.Encode(compWriter, c); err != nil {
		_ = compWriter.Close()
		return ChunkRef{}, err
	}
	if err := compWriter.Close(); err != nil {
		return ChunkRef{}, err
	}

	data := buf.Bytes()
	if err := store.Put(ctx, filePath, bytes.NewReader(data)); err != nil {
		return ChunkRef{}, err
	}

	sum := sha256.Sum256(data)
	name, _ := ChunkName(c.ID)
	return ChunkRef{
		ID:        c.ID.String(),
		Name:      name,
		Kind:      c.Kind.String(),
		Path:      filePath,
		Rows:      len(c.Records),
		SizeBytes: int64(len(data)),
		Checksum:  "sha256:" + hex.EncodeToString(sum[:]),
	}, nil
}

// ReadManifest loads the manifest of export id from store.
func ReadManifest(ctx context.Context, store Store, exportID string) (*Manifest, error) {
	rc, err := store.Get(ctx, ManifestPath(exportID))
	if err != nil {
		return nil, fmt.Errorf("savegame: read manifest: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("savegame: decode manifest: %w", err)
	}
	return &m, nil
}
