package savegame

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/justapithecus/savegame/internal/testutil"
)

// linkGraphSchema is a cut-down LGRP layout: a scalar, a string and a list
// of nested structs.
func linkGraphSchema() []byte {
	return testutil.NewBuilder().
		Field(testutil.TypeU16, "cargo").
		Field(testutil.TypeString|testutil.Repeated, "name").
		Field(testutil.TypeStruct|testutil.Repeated, "nodes").
		EndSchema().
		Field(testutil.TypeU32, "supply").
		Field(testutil.TypeStringID, "station").
		EndSchema().
		Bytes()
}

func linkGraphEntry(cargo uint16, name string, nodes ...[2]uint32) []byte {
	b := testutil.NewBuilder().U16(cargo).String(name).Gamma(uint64(len(nodes)))
	for _, n := range nodes {
		b.U32(n[0]).U16(uint16(n[1]))
	}
	return b.Bytes()
}

func sampleSavegame() []byte {
	signSchema := testutil.NewBuilder().Field(testutil.TypeI32, "x").EndSchema().Bytes()
	return testutil.NewBuilder().
		RIFF("MAPT", []byte{1, 2, 3, 4, 5}).
		Table("LGRP", linkGraphSchema(),
			linkGraphEntry(0, "passengers", [2]uint32{100, 7}, [2]uint32{5, 8}),
			nil,
			linkGraphEntry(2, "", [2]uint32{1, 1}),
		).
		SparseTable("SIGN", signSchema,
			testutil.SparseEntry(4, testutil.NewBuilder().U32(uint32(0xFFFFFFFF)).Bytes()),
			testutil.SparseEntry(9, testutil.NewBuilder().U32(12).Bytes()),
		).
		End().
		Bytes()
}

func TestLoad_Savegame(t *testing.T) {
	table, err := Load(seekSource(t, sampleSavegame()))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ids := table.IDs()
	if len(ids) != 2 || ids[0].String() != "LGRP" || ids[1].String() != "SIGN" {
		t.Fatalf("IDs = %v, want [LGRP SIGN]", ids)
	}

	lgrp, ok := table.Get(MustChunkID("LGRP"))
	if !ok || lgrp.Kind != ChunkKindTable {
		t.Fatalf("LGRP = %+v", lgrp)
	}
	if len(lgrp.Records) != 2 || lgrp.Records[1].Index != 2 {
		t.Fatalf("LGRP records = %+v", lgrp.Records)
	}

	signs := table.Records(MustChunkID("SIGN"))
	if len(signs) != 2 || signs[0].Index != 4 || signs[1].Index != 9 {
		t.Fatalf("SIGN records = %+v", signs)
	}
	if f, _ := signs[0].Get("x"); f.Value != I32(-1) {
		t.Errorf("SIGN[0].x = %v", f.Value)
	}
}

func TestChunkTable_MarshalJSON(t *testing.T) {
	table, err := Load(seekSource(t, sampleSavegame()))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"LGRP":[` +
		`{"cargo":0,"name":["passengers"],"nodes":[{"supply":100,"station":7},{"supply":5,"station":8}]},` +
		`{"cargo":2,"name":[],"nodes":[{"supply":1,"station":1}]}],` +
		`"SIGN":[{"x":-1},{"x":12}]}`
	if string(got) != want {
		t.Errorf("JSON mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestLoad_EmptySavegame(t *testing.T) {
	table, err := Load(seekSource(t, []byte{0, 0, 0, 0}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
	got, _ := json.Marshal(table)
	if string(got) != "{}" {
		t.Errorf("JSON = %s, want {}", got)
	}
}

func TestLoad_AIPLHasCustomData(t *testing.T) {
	schema := testutil.NewBuilder().
		Field(testutil.TypeString|testutil.Repeated, "name").
		EndSchema().
		Bytes()
	entry := testutil.NewBuilder().String("AdmiralAI").U8(1).Bytes()
	data := testutil.NewBuilder().Table("AIPL", schema, entry).End().Bytes()

	table, err := Load(seekSource(t, data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c, _ := table.Get(MustChunkID("AIPL"))
	if len(c.Schema) != 2 || c.Schema[1].Key != "hasCustomData" || c.Schema[1].Kind != KindU8 {
		t.Fatalf("schema = %+v", c.Schema)
	}
	if f, _ := c.Records[0].Get("hasCustomData"); f.Value != U8(1) {
		t.Errorf("hasCustomData = %v", f.Value)
	}
}

func TestLoad_OtherChunksNotExtended(t *testing.T) {
	schema := testutil.NewBuilder().Field(testutil.TypeU8, "a").EndSchema().Bytes()
	data := testutil.NewBuilder().Table("GSDT", schema, []byte{1}).End().Bytes()
	table, err := Load(seekSource(t, data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c, _ := table.Get(MustChunkID("GSDT")); len(c.Schema) != 1 {
		t.Errorf("GSDT schema = %+v", c.Schema)
	}
}

func TestLoad_ArrayChunkUnsupported(t *testing.T) {
	for _, typ := range []byte{testutil.ChunkArray, testutil.ChunkSparseArray} {
		data := testutil.NewBuilder().ChunkID("ORDR").Raw(typ).Gamma(0).End().Bytes()
		_, err := Load(seekSource(t, data))
		if !errors.Is(err, ErrUnsupportedChunk) {
			t.Fatalf("type %d: expected ErrUnsupportedChunk, got: %v", typ, err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Chunk.String() != "ORDR" {
			t.Errorf("type %d: expected DecodeError for ORDR, got: %v", typ, err)
		}
	}
}

func TestLoad_UnknownChunkType(t *testing.T) {
	data := testutil.NewBuilder().ChunkID("ZZZZ").Raw(0x05).End().Bytes()
	_, err := Load(seekSource(t, data))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got: %v", err)
	}
}

func TestLoad_EmptySchemaBlock(t *testing.T) {
	data := testutil.NewBuilder().ChunkID("CITY").Raw(testutil.ChunkTable).Gamma(0).End().Bytes()
	_, err := Load(seekSource(t, data))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got: %v", err)
	}
}

func TestLoad_MissingSentinel(t *testing.T) {
	data := testutil.NewBuilder().RIFF("MAPT", []byte{1}).Bytes()
	_, err := Load(seekSource(t, data))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got: %v", err)
	}
}

func TestLoad_RIFFIgnoresTypeHighNibble(t *testing.T) {
	schema := testutil.NewBuilder().Field(testutil.TypeU16, "v").EndSchema().Bytes()
	data := testutil.NewBuilder().
		ChunkID("MAP2").Raw(0x10, 0x00, 0x00, 0x02, 0xAA, 0xBB).
		Table("TEST", schema, testutil.NewBuilder().U16(9).Bytes()).
		End().
		Bytes()

	table, err := Load(seekSource(t, data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	records := table.Records(MustChunkID("TEST"))
	if len(records) != 1 {
		t.Fatalf("TEST records = %+v", records)
	}
	if f, _ := records[0].Get("v"); f.Value != U16(9) {
		t.Errorf("TEST[0].v = %v, want 9", f.Value)
	}
}

func TestLoad_RepeatedChunkReplacesInPlace(t *testing.T) {
	schema := testutil.NewBuilder().Field(testutil.TypeU8, "v").EndSchema().Bytes()
	data := testutil.NewBuilder().
		Table("AAAA", schema, []byte{1}).
		Table("BBBB", schema, []byte{2}).
		Table("AAAA", schema, []byte{3}, []byte{4}).
		End().
		Bytes()

	table, err := Load(seekSource(t, data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ids := table.IDs()
	if len(ids) != 2 || ids[0].String() != "AAAA" || ids[1].String() != "BBBB" {
		t.Fatalf("IDs = %v", ids)
	}
	if n := len(table.Records(MustChunkID("AAAA"))); n != 2 {
		t.Errorf("AAAA has %d records, want 2 from the later chunk", n)
	}
}

func TestLoad_WithChunks(t *testing.T) {
	table, err := Load(seekSource(t, sampleSavegame()), WithChunks(MustChunkID("SIGN")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ids := table.IDs(); len(ids) != 1 || ids[0].String() != "SIGN" {
		t.Errorf("IDs = %v, want [SIGN]", ids)
	}
}

func TestLoad_StrictSchemaBlock(t *testing.T) {
	schema := testutil.NewBuilder().Field(testutil.TypeU8, "v").EndSchema().Bytes()
	data := testutil.NewBuilder().
		ChunkID("CITY").Raw(testutil.ChunkTable).
		Gamma(uint64(len(schema)) + 2).Raw(schema...).
		Gamma(2).Raw(7).Gamma(0).
		End().
		Bytes()

	if _, err := Load(seekSource(t, data)); err != nil {
		t.Fatalf("lenient Load failed: %v", err)
	}
	_, err := Load(seekSource(t, data), WithStrictLengths(true))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got: %v", err)
	}
	if _, err := Load(seekSource(t, sampleSavegame()), WithStrictLengths(true)); err != nil {
		t.Fatalf("strict Load of well-formed data failed: %v", err)
	}
}

func TestLoad_ErrorLocatesChunkAndField(t *testing.T) {
	schema := testutil.NewBuilder().
		Field(testutil.TypeU8, "a").
		Field(testutil.TypeString|testutil.Repeated, "name").
		EndSchema().
		Bytes()
	entry := testutil.NewBuilder().U8(1).Gamma(1).Raw(0xFF).Bytes()
	data := testutil.NewBuilder().Table("STNN", schema, entry).End().Bytes()

	_, err := Load(seekSource(t, data))
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got: %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got: %v", err)
	}
	if de.Chunk.String() != "STNN" || de.Field != "name" {
		t.Errorf("DecodeError = %+v", de)
	}
	if !strings.Contains(err.Error(), `chunk STNN: field "name"`) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestLoad_OptionNotValid(t *testing.T) {
	_, err := Load(seekSource(t, sampleSavegame()), WithCodec(NewJSONCodec()))
	if !errors.Is(err, ErrOptionNotValidForLoad) {
		t.Fatalf("expected ErrOptionNotValidForLoad, got: %v", err)
	}
}

func TestLoad_LogsChunks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := Load(seekSource(t, sampleSavegame()), WithLogger(logger)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`id=LGRP`, `name="link graphs"`, `kind=riff`, `kind=sparse-table`, `records=2`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestOpen_Formats(t *testing.T) {
	ctx := context.Background()
	for _, format := range []Format{FormatNone, FormatZlib, FormatLZMA, FormatLZO} {
		t.Run(string(format), func(t *testing.T) {
			store := NewMemory()
			file := savegameFile(t, format, 315, sampleSavegame())
			if err := store.Put(ctx, "saves/game.sav", bytes.NewReader(file)); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			table, header, err := Open(ctx, store, "saves/game.sav")
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if header.Format != format || header.Version != 315 {
				t.Errorf("header = %+v", header)
			}
			if table.Len() != 2 {
				t.Errorf("Len = %d, want 2", table.Len())
			}
		})
	}
}

func TestOpen_NotFound(t *testing.T) {
	_, _, err := Open(context.Background(), NewMemory(), "missing.sav")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}
