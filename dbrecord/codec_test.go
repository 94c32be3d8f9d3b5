package dbrecord_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbrecord"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func usersSchema() *dbrecord.Schema {
	schema := dbrecord.NewSchema()
	schema.AddIntField("id")
	schema.AddTextField("name", 5)
	schema.AddTextField("bio", 0)
	return schema
}

func TestCodecRoundTrip(t *testing.T) {
	schema := usersSchema()
	tests := []struct {
		name string
		row  dbrecord.Row
	}{
		{"plain", dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewText("Alice"), dbconstant.NewText("hello")}},
		{"negative int", dbrecord.Row{dbconstant.NewInt(-42), dbconstant.NewText("Bob"), dbconstant.NewText("")}},
		{"empty text", dbrecord.Row{dbconstant.NewInt(0), dbconstant.NewText(""), dbconstant.NewText("")}},
		{"multibyte at max length", dbrecord.Row{dbconstant.NewInt(7), dbconstant.NewText("日本語です"), dbconstant.NewText("🙂")}},
		{"nulls", dbrecord.Row{dbconstant.Null(), dbconstant.NewText("x"), dbconstant.Null()}},
		{"all null", dbrecord.Row{dbconstant.Null(), dbconstant.Null(), dbconstant.Null()}},
		{"long unbounded text", dbrecord.Row{dbconstant.NewInt(3), dbconstant.NewText("c"), dbconstant.NewText(strings.Repeat("z", 10000))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := dbrecord.EncodeRow(tt.row, schema)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			got, err := dbrecord.DecodeRow(buf, schema)
			if err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if !got.Equal(tt.row) {
				t.Errorf("expected %v, got %v", tt.row, got)
			}
		})
	}
}

func TestCodecManyColumnsBitmap(t *testing.T) {
	schema := dbrecord.NewSchema()
	row := dbrecord.Row{}
	for i := range 11 {
		schema.AddIntField(string(rune('a' + i)))
		if i%3 == 0 {
			row = append(row, dbconstant.Null())
		} else {
			row = append(row, dbconstant.NewInt(int64(i)))
		}
	}
	buf, err := dbrecord.EncodeRow(row, schema)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	got, err := dbrecord.DecodeRow(buf, schema)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !got.Equal(row) {
		t.Errorf("expected %v, got %v", row, got)
	}
}

func TestEncodeSchemaViolation(t *testing.T) {
	schema := usersSchema()
	tests := []struct {
		name string
		row  dbrecord.Row
	}{
		{"too few values", dbrecord.Row{dbconstant.NewInt(1)}},
		{"too many values", dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewText("a"), dbconstant.NewText("b"), dbconstant.NewInt(2)}},
		{"text for int", dbrecord.Row{dbconstant.NewText("1"), dbconstant.NewText("a"), dbconstant.NewText("b")}},
		{"int for text", dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewInt(2), dbconstant.NewText("b")}},
		{"too long", dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewText("Alexander"), dbconstant.NewText("b")}},
		{"invalid utf8", dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewText("\xff"), dbconstant.NewText("b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dbrecord.EncodeRow(tt.row, schema)
			if !dberr.Is(err, dberr.CodeSchemaViolation) {
				t.Fatalf("expected SCHEMA_VIOLATION, got %v", err)
			}
		})
	}
}

func TestDecodeCorruptData(t *testing.T) {
	schema := usersSchema()
	valid, err := dbrecord.EncodeRow(dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewText("Alice"), dbconstant.NewText("bio")}, schema)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	hugeLength := []byte{0, 1, 0, 0, 0, 0, 0, 0, 0}
	hugeLength = append(hugeLength, 0xff, 0xff, 0xff, 0x7f)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"truncated int", valid[:4]},
		{"truncated text", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte{}, valid...), 0)},
		{"null bit beyond columns", append([]byte{0x08}, valid[1:]...)},
		{"length exceeds buffer", hugeLength},
		{"over max length", []byte{0x04, 1, 0, 0, 0, 0, 0, 0, 0, 6, 0, 0, 0, 'a', 'b', 'c', 'd', 'e', 'f'}},
		{"invalid utf8", []byte{0x04, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dbrecord.DecodeRow(tt.buf, schema)
			if !dberr.Is(err, dberr.CodeCorruptData) {
				t.Fatalf("expected CORRUPT_DATA, got %v", err)
			}
		})
	}
}

func TestReadRowStream(t *testing.T) {
	schema := usersSchema()
	rows := []dbrecord.Row{
		{dbconstant.NewInt(1), dbconstant.NewText("a"), dbconstant.Null()},
		{dbconstant.NewInt(2), dbconstant.NewText("b"), dbconstant.NewText("two")},
	}
	var buf bytes.Buffer
	for _, row := range rows {
		rec, err := dbrecord.EncodeRow(row, schema)
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}
		buf.Write(rec)
	}
	r := bytes.NewReader(buf.Bytes())
	for i, want := range rows {
		got, err := dbrecord.ReadRow(r, schema)
		if err != nil {
			t.Fatalf("failed to read row %d: %v", i, err)
		}
		if !got.Equal(want) {
			t.Errorf("row %d: expected %v, got %v", i, want, got)
		}
	}
	if _, err := dbrecord.ReadRow(r, schema); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at record boundary, got %v", err)
	}
}
