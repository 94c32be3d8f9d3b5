package dbrecord

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/teru01/filedb-go/dberr"
)

// Table file header:
//
//	column count: uint32 LE
//	per column:   name length uint32 LE, name, type tag (1 byte),
//	              and for TEXT the max length as uint32 LE
const (
	headerTypeInt  byte = 0
	headerTypeText byte = 1

	maxHeaderColumns = 1 << 12
	maxHeaderName    = 1 << 10
)

func EncodeHeader(schema *Schema) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(schema.Len()))
	for _, c := range schema.columns {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Name)))
		buf = append(buf, c.Name...)
		switch c.Type {
		case FieldTypeText:
			buf = append(buf, headerTypeText)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Length))
		default:
			buf = append(buf, headerTypeInt)
		}
	}
	return buf
}

// ReadHeader decodes a schema header from r. The number of bytes consumed
// equals len(EncodeHeader(schema)).
func ReadHeader(r io.Reader) (*Schema, error) {
	var scratch [4]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return nil, corrupt("truncated header", err)
	}
	count := binary.LittleEndian.Uint32(scratch[:])
	if count == 0 || count > maxHeaderColumns {
		return nil, corrupt(fmt.Sprintf("invalid column count %d in header", count), nil)
	}
	schema := NewSchema()
	for i := range int(count) {
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return nil, corrupt(fmt.Sprintf("truncated name length of column %d", i), err)
		}
		nameLen := binary.LittleEndian.Uint32(scratch[:])
		if nameLen == 0 || nameLen > maxHeaderName {
			return nil, corrupt(fmt.Sprintf("invalid name length %d of column %d", nameLen, i), nil)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, corrupt(fmt.Sprintf("truncated name of column %d", i), err)
		}
		if !utf8.Valid(name) {
			return nil, corrupt(fmt.Sprintf("invalid UTF-8 name of column %d", i), nil)
		}
		if _, err := io.ReadFull(r, scratch[:1]); err != nil {
			return nil, corrupt(fmt.Sprintf("truncated type of column %q", name), err)
		}
		switch scratch[0] {
		case headerTypeInt:
			schema.AddIntField(string(name))
		case headerTypeText:
			if _, err := io.ReadFull(r, scratch[:]); err != nil {
				return nil, corrupt(fmt.Sprintf("truncated max length of column %q", name), err)
			}
			schema.AddTextField(string(name), int(binary.LittleEndian.Uint32(scratch[:])))
		default:
			return nil, corrupt(fmt.Sprintf("unknown type tag %d of column %q", scratch[0], name), nil)
		}
	}
	if err := schema.Validate(); err != nil {
		return nil, dberr.New(dberr.CodeCorruptData, "invalid schema in header", err)
	}
	return schema, nil
}
