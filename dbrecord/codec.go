package dbrecord

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dberr"
)

// Record layout:
//
//	null bitmap: ceil(n/8) bytes, bit i set means column i is NULL
//	per non-null column:
//	  INT:  8 bytes, little endian two's complement
//	  TEXT: 4 byte little endian byte length, then UTF-8 bytes
const (
	intSize       = 8
	lengthPrefix  = 4
	maxRuneLength = utf8.UTFMax
)

func bitmapSize(n int) int {
	return (n + 7) / 8
}

// ValidateRow checks row against schema. Violations are SCHEMA_VIOLATION.
func ValidateRow(row Row, schema *Schema) error {
	if len(row) != schema.Len() {
		return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("expected %d values, got %d", schema.Len(), len(row)), nil)
	}
	for i, v := range row {
		c := schema.Column(i)
		if v.IsNull() {
			continue
		}
		switch c.Type {
		case FieldTypeInt:
			if v.Kind() != dbconstant.KindInt {
				return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("column %q expects INT, got %s", c.Name, v.Kind()), nil)
			}
		case FieldTypeText:
			if v.Kind() != dbconstant.KindText {
				return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("column %q expects TEXT, got %s", c.Name, v.Kind()), nil)
			}
			if err := checkText(v.AsText(), c); err != nil {
				return dberr.New(dberr.CodeSchemaViolation, err.Error(), nil)
			}
		default:
			return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("unknown type %d for column %q", c.Type, c.Name), nil)
		}
	}
	return nil
}

func checkText(s string, c Column) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("column %q: invalid UTF-8 text", c.Name)
	}
	if c.Length > 0 {
		if n := utf8.RuneCountInString(s); n > c.Length {
			return fmt.Errorf("column %q: text of %d characters exceeds max length %d", c.Name, n, c.Length)
		}
	}
	return nil
}

// EncodeRow validates row and returns its record bytes.
func EncodeRow(row Row, schema *Schema) ([]byte, error) {
	if err := ValidateRow(row, schema); err != nil {
		return nil, err
	}
	size := bitmapSize(len(row))
	for _, v := range row {
		switch v.Kind() {
		case dbconstant.KindInt:
			size += intSize
		case dbconstant.KindText:
			size += lengthPrefix + len(v.AsText())
		}
	}
	// 先にサイズを計算して一度だけ確保する
	buf := make([]byte, bitmapSize(len(row)), size)
	for i, v := range row {
		if v.IsNull() {
			buf[i/8] |= 1 << (i % 8)
		}
	}
	for _, v := range row {
		switch v.Kind() {
		case dbconstant.KindInt:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v.AsInt()))
		case dbconstant.KindText:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.AsText())))
			buf = append(buf, v.AsText()...)
		}
	}
	return buf, nil
}

// DecodeRow decodes exactly one record. Anything malformed is CORRUPT_DATA.
func DecodeRow(buf []byte, schema *Schema) (Row, error) {
	r := bytes.NewReader(buf)
	row, err := ReadRow(r, schema)
	if errors.Is(err, io.EOF) {
		return nil, dberr.New(dberr.CodeCorruptData, "empty record", nil)
	}
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, dberr.New(dberr.CodeCorruptData, fmt.Sprintf("%d trailing bytes after record", r.Len()), nil)
	}
	return row, nil
}

// ReadRow reads the next record from r. It returns io.EOF only when r is
// exhausted exactly at a record boundary.
func ReadRow(r io.Reader, schema *Schema) (Row, error) {
	n := schema.Len()
	bitmap := make([]byte, bitmapSize(n))
	if _, err := io.ReadFull(r, bitmap); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, corrupt("truncated null bitmap", err)
	}
	// 列数を超えるビットは未使用なので立っていたら壊れている
	for i := n; i < len(bitmap)*8; i++ {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			return nil, corrupt(fmt.Sprintf("null bit %d set beyond %d columns", i, n), nil)
		}
	}

	row := make(Row, n)
	var scratch [intSize]byte
	for i := range n {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			continue
		}
		c := schema.Column(i)
		switch c.Type {
		case FieldTypeInt:
			if _, err := io.ReadFull(r, scratch[:intSize]); err != nil {
				return nil, corrupt(fmt.Sprintf("truncated INT column %q", c.Name), err)
			}
			row[i] = dbconstant.NewInt(int64(binary.LittleEndian.Uint64(scratch[:intSize])))
		case FieldTypeText:
			if _, err := io.ReadFull(r, scratch[:lengthPrefix]); err != nil {
				return nil, corrupt(fmt.Sprintf("truncated length of TEXT column %q", c.Name), err)
			}
			size := int64(binary.LittleEndian.Uint32(scratch[:lengthPrefix]))
			// 長さは文字数なのでバイト数は最大 UTFMax 倍
			if c.Length > 0 && size > int64(c.Length)*maxRuneLength {
				return nil, corrupt(fmt.Sprintf("TEXT column %q length %d exceeds max length %d", c.Name, size, c.Length), nil)
			}
			var text bytes.Buffer
			// 長さフィールドが壊れていても巨大なバッファは確保しない
			if _, err := io.CopyN(&text, r, size); err != nil {
				return nil, corrupt(fmt.Sprintf("truncated TEXT column %q", c.Name), err)
			}
			s := text.String()
			if err := checkText(s, c); err != nil {
				return nil, corrupt(err.Error(), nil)
			}
			row[i] = dbconstant.NewText(s)
		default:
			return nil, corrupt(fmt.Sprintf("unknown type %d for column %q", c.Type, c.Name), nil)
		}
	}
	return row, nil
}

func corrupt(message string, err error) error {
	switch {
	case err == nil, errors.Is(err, io.ErrUnexpectedEOF):
	case errors.Is(err, io.EOF):
		err = io.ErrUnexpectedEOF
	default:
		return dberr.New(dberr.CodeIOError, message, err)
	}
	return dberr.New(dberr.CodeCorruptData, message, err)
}
