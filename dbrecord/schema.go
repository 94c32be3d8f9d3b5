package dbrecord

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/teru01/filedb-go/dberr"
)

type FieldType int

const (
	FieldTypeInt  FieldType = 0
	FieldTypeText FieldType = 1
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeInt:
		return "INT"
	case FieldTypeText:
		return "TEXT"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

type Column struct {
	// テーブル名またはエイリアス。テーブル自身のスキーマでは空
	Qualifier string
	Name      string
	Type      FieldType
	// 文字数。0は上限なし
	Length int
}

func (c Column) String() string {
	name := c.Name
	if c.Qualifier != "" {
		name = c.Qualifier + "." + c.Name
	}
	if c.Type == FieldTypeText && c.Length > 0 {
		return fmt.Sprintf("%s %s(%d)", name, c.Type, c.Length)
	}
	return fmt.Sprintf("%s %s", name, c.Type)
}

// Schema is an ordered list of columns. The zero value is an empty schema.
type Schema struct {
	columns []Column
}

func NewSchema() *Schema {
	return &Schema{}
}

func (s *Schema) AddField(fieldName string, fieldType FieldType, length int) {
	s.columns = append(s.columns, Column{Name: fieldName, Type: fieldType, Length: length})
}

func (s *Schema) AddIntField(fieldName string) {
	s.AddField(fieldName, FieldTypeInt, 0)
}

func (s *Schema) AddTextField(fieldName string, length int) {
	s.AddField(fieldName, FieldTypeText, length)
}

func (s *Schema) AddColumn(c Column) {
	s.columns = append(s.columns, c)
}

func (s *Schema) AddAll(schema *Schema) {
	s.columns = append(s.columns, schema.columns...)
}

func (s *Schema) Len() int {
	return len(s.columns)
}

func (s *Schema) Column(i int) Column {
	return s.columns[i]
}

func (s *Schema) Columns() []Column {
	return slices.Clone(s.columns)
}

func (s *Schema) Fields() []string {
	fields := make([]string, len(s.columns))
	for i, c := range s.columns {
		fields[i] = c.Name
	}
	return fields
}

func (s *Schema) HasField(fieldName string) bool {
	return s.IndexOf(fieldName) >= 0
}

// IndexOf returns the ordinal of the first column named fieldName, or -1.
func (s *Schema) IndexOf(fieldName string) int {
	return slices.IndexFunc(s.columns, func(c Column) bool { return c.Name == fieldName })
}

// 存在しない列は INT 扱い。呼び出し側で HasField を確認する
func (s *Schema) FieldType(fieldName string) FieldType {
	if i := s.IndexOf(fieldName); i >= 0 {
		return s.columns[i].Type
	}
	return FieldTypeInt
}

func (s *Schema) Length(fieldName string) int {
	if i := s.IndexOf(fieldName); i >= 0 {
		return s.columns[i].Length
	}
	return 0
}

// Qualified returns a copy of s whose columns carry qualifier.
func (s *Schema) Qualified(qualifier string) *Schema {
	q := &Schema{columns: slices.Clone(s.columns)}
	for i := range q.columns {
		q.columns[i].Qualifier = qualifier
	}
	return q
}

// Equal compares column names, types and lengths. Qualifiers are ignored.
func (s *Schema) Equal(other *Schema) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, c := range s.columns {
		o := other.columns[i]
		if c.Name != o.Name || c.Type != o.Type || c.Length != o.Length {
			return false
		}
	}
	return true
}

// MaxTextLength is the largest declared TEXT length a table header can hold.
const MaxTextLength = math.MaxUint32

// Validate checks that s can describe a table and that its header can be
// read back unchanged.
func (s *Schema) Validate() error {
	if len(s.columns) == 0 {
		return dberr.New(dberr.CodeSchemaViolation, "table must have at least one column", nil)
	}
	if len(s.columns) > maxHeaderColumns {
		return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("table has %d columns, at most %d allowed", len(s.columns), maxHeaderColumns), nil)
	}
	// 列名は修飾子なしで一意
	seen := make(map[string]struct{}, len(s.columns))
	for _, c := range s.columns {
		if c.Name == "" {
			return dberr.New(dberr.CodeSchemaViolation, "column name must not be empty", nil)
		}
		if len(c.Name) > maxHeaderName {
			return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("column name of %d bytes is longer than %d", len(c.Name), maxHeaderName), nil)
		}
		if _, ok := seen[c.Name]; ok {
			return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("duplicate column %q", c.Name), nil)
		}
		seen[c.Name] = struct{}{}
		switch c.Type {
		case FieldTypeInt:
		case FieldTypeText:
			if c.Length < 0 {
				return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("negative length %d for column %q", c.Length, c.Name), nil)
			}
			// ヘッダには uint32 で書くので超える長さは読み戻せない
			if int64(c.Length) > MaxTextLength {
				return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("length %d for column %q exceeds %d", c.Length, c.Name, MaxTextLength), nil)
			}
		default:
			return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("unknown type %d for column %q", c.Type, c.Name), nil)
		}
	}
	return nil
}

func (s *Schema) String() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
