package dbparse

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// sqlLexer tokenizes the supported SQL subset. Rules are tried in order.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Comment", Pattern: `--[^\n]*`},
	{Name: "Keyword", Pattern: `\b(?i:SELECT|FROM|WHERE|AND|OR|NOT|IS|NULL|INSERT|INTO|VALUES|CREATE|TABLES|TABLE|INNER|JOIN|ON|AS|EXPLAIN|SHOW)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `'(?:[^']|'')*'|"(?:[^"]|"")*"`},
	{Name: "Operator", Pattern: `<>|!=|<=|>=|[=<>]`},
	{Name: "Punct", Pattern: `[(),.;*]`},
})

var sqlParser = participle.MustBuild[statementAST](
	participle.Lexer(sqlLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

type statementAST struct {
	Command   *commandAST `@@`
	Semicolon bool        `@";"?`
}

type commandAST struct {
	Explain    *selectAST      `  "EXPLAIN" @@`
	Select     *selectAST      `| @@`
	Insert     *insertAST      `| @@`
	Create     *createTableAST `| @@`
	ShowTables bool            `| @("SHOW" "TABLES")`
}

type selectAST struct {
	Projections []*projectionAST `"SELECT" @@ ( "," @@ )*`
	From        *tableRefAST     `"FROM" @@`
	Joins       []*joinAST       `@@*`
	Where       *exprAST         `( "WHERE" @@ )?`
}

type projectionAST struct {
	Star   bool          `  @"*"`
	Column *columnRefAST `| @@`
}

// columnRefAST is col, t.col or t.*.
type columnRefAST struct {
	Parts []string `@Ident ( "." ( @Ident | @"*" ) )?`
}

type tableRefAST struct {
	Name  string `@Ident`
	Alias string `( "AS"? @Ident )?`
}

type joinAST struct {
	Kind  string       `( @"," | "INNER"? @"JOIN" )`
	Table *tableRefAST `@@`
	On    *exprAST     `( "ON" @@ )?`
}

type exprAST struct {
	Or []*andExprAST `@@ ( "OR" @@ )*`
}

type andExprAST struct {
	And []*notExprAST `@@ ( "AND" @@ )*`
}

type notExprAST struct {
	Not     *notExprAST  `  "NOT" @@`
	Primary *primaryAST `| @@`
}

type primaryAST struct {
	Sub        *exprAST       `  "(" @@ ")"`
	Comparison *comparisonAST `| @@`
}

type comparisonAST struct {
	Left *operandAST        `@@`
	Tail *comparisonTailAST `@@`
}

type comparisonTailAST struct {
	Compare *compareTailAST `  @@`
	Null    *nullTailAST    `| @@`
}

type compareTailAST struct {
	Op    string      `@Operator`
	Right *operandAST `@@`
}

type nullTailAST struct {
	Is  string `@"IS"`
	Not bool   `@"NOT"? "NULL"`
}

type operandAST struct {
	Null   bool          `  @"NULL"`
	Int    *string       `| @Int`
	String *stringLit    `| @String`
	Column *columnRefAST `| @@`
}

type insertAST struct {
	Table   string         `"INSERT" "INTO" @Ident`
	Columns []string       `( "(" @Ident ( "," @Ident )* ")" )?`
	Rows    []*valueRowAST `"VALUES" @@ ( "," @@ )*`
}

type valueRowAST struct {
	Values []*operandAST `"(" @@ ( "," @@ )* ")"`
}

type createTableAST struct {
	Table   string          `"CREATE" "TABLE" @Ident`
	Columns []*columnDefAST `"(" @@ ( "," @@ )* ")"`
}

type columnDefAST struct {
	Name   string  `@Ident`
	Type   string  `@Ident`
	Length *string `( "(" @Int ")" )?`
}

// stringLit is a quoted literal. A doubled quote inside stands for one quote.
type stringLit string

func (s *stringLit) Capture(values []string) error {
	v := values[0]
	quote := v[:1]
	*s = stringLit(strings.ReplaceAll(v[1:len(v)-1], quote+quote, quote))
	return nil
}
