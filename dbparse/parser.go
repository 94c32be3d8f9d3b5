package dbparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

type Parser struct {
	input string
}

func NewParser(s string) *Parser {
	return &Parser{input: s}
}

// Parse parses a single statement. All failures are SYNTAX_ERROR.
func Parse(s string) (Statement, error) {
	return NewParser(s).Statement()
}

func (p *Parser) Statement() (Statement, error) {
	ast, err := sqlParser.ParseString("", p.input)
	if err != nil {
		return nil, syntaxError(err.Error())
	}
	cmd := ast.Command
	switch {
	case cmd.Explain != nil:
		q, err := convertSelect(cmd.Explain)
		if err != nil {
			return nil, err
		}
		return NewExplainData(q), nil
	case cmd.Select != nil:
		return convertSelect(cmd.Select)
	case cmd.Insert != nil:
		return convertInsert(cmd.Insert)
	case cmd.Create != nil:
		return convertCreateTable(cmd.Create)
	case cmd.ShowTables:
		return &ShowTablesData{}, nil
	}
	return nil, syntaxError("empty statement")
}

func (p *Parser) Query() (*QueryData, error) {
	stmt, err := p.Statement()
	if err != nil {
		return nil, err
	}
	q, ok := stmt.(*QueryData)
	if !ok {
		return nil, syntaxError(fmt.Sprintf("expected SELECT, got %s", stmt))
	}
	return q, nil
}

func (p *Parser) Insert() (*InsertData, error) {
	stmt, err := p.Statement()
	if err != nil {
		return nil, err
	}
	ins, ok := stmt.(*InsertData)
	if !ok {
		return nil, syntaxError(fmt.Sprintf("expected INSERT, got %s", stmt))
	}
	return ins, nil
}

func (p *Parser) Create() (*CreateTableData, error) {
	stmt, err := p.Statement()
	if err != nil {
		return nil, err
	}
	ct, ok := stmt.(*CreateTableData)
	if !ok {
		return nil, syntaxError(fmt.Sprintf("expected CREATE TABLE, got %s", stmt))
	}
	return ct, nil
}

func syntaxError(message string) error {
	return dberr.New(dberr.CodeSyntaxError, message, nil)
}

func convertSelect(s *selectAST) (*QueryData, error) {
	var projections []Projection
	for _, p := range s.Projections {
		if p.Star {
			projections = append(projections, Projection{Star: true})
			continue
		}
		parts := p.Column.Parts
		switch {
		case len(parts) == 1:
			projections = append(projections, Projection{Field: parts[0]})
		case parts[1] == "*":
			projections = append(projections, Projection{Star: true, Qualifier: parts[0]})
		default:
			projections = append(projections, Projection{Qualifier: parts[0], Field: parts[1]})
		}
	}

	tables := []TableRef{{Name: s.From.Name, Alias: s.From.Alias}}
	var joins []JoinData
	for _, j := range s.Joins {
		tables = append(tables, TableRef{Name: j.Table.Name, Alias: j.Table.Alias})
		if j.Kind == "," {
			if j.On != nil {
				return nil, syntaxError(fmt.Sprintf("ON without JOIN for table %s", j.Table.Name))
			}
			continue
		}
		if j.On == nil {
			return nil, syntaxError(fmt.Sprintf("JOIN %s requires ON", j.Table.Name))
		}
		cond, err := convertExpr(j.On)
		if err != nil {
			return nil, err
		}
		joins = append(joins, JoinData{Index: len(tables) - 1, Condition: cond})
	}

	var predicate dbquery.Predicate
	if s.Where != nil {
		var err error
		predicate, err = convertExpr(s.Where)
		if err != nil {
			return nil, err
		}
	}
	return NewQueryData(projections, tables, joins, predicate), nil
}

func convertExpr(e *exprAST) (dbquery.Predicate, error) {
	var ors []dbquery.Predicate
	for _, a := range e.Or {
		var ands []dbquery.Predicate
		for _, n := range a.And {
			p, err := convertNot(n)
			if err != nil {
				return nil, err
			}
			ands = append(ands, p)
		}
		if len(ands) == 1 {
			ors = append(ors, ands[0])
		} else {
			ors = append(ors, dbquery.NewConjunction(ands...))
		}
	}
	if len(ors) == 1 {
		return ors[0], nil
	}
	return dbquery.NewDisjunction(ors...), nil
}

func convertNot(n *notExprAST) (dbquery.Predicate, error) {
	if n.Not != nil {
		p, err := convertNot(n.Not)
		if err != nil {
			return nil, err
		}
		return dbquery.NewNegation(p), nil
	}
	if n.Primary.Sub != nil {
		return convertExpr(n.Primary.Sub)
	}
	c := n.Primary.Comparison
	lhs, err := convertOperand(c.Left)
	if err != nil {
		return nil, err
	}
	if c.Tail.Null != nil {
		return dbquery.NewNullTest(lhs, c.Tail.Null.Not), nil
	}
	op, err := dbquery.ParseOp(c.Tail.Compare.Op)
	if err != nil {
		return nil, syntaxError(err.Error())
	}
	rhs, err := convertOperand(c.Tail.Compare.Right)
	if err != nil {
		return nil, err
	}
	return dbquery.NewTerm(lhs, op, rhs), nil
}

func convertOperand(o *operandAST) (dbquery.Expression, error) {
	if o.Column != nil {
		parts := o.Column.Parts
		if len(parts) == 1 {
			return dbquery.NewExpressionFromField("", parts[0]), nil
		}
		if parts[1] == "*" {
			return dbquery.Expression{}, syntaxError(fmt.Sprintf("%s.* is not allowed in an expression", parts[0]))
		}
		return dbquery.NewExpressionFromField(parts[0], parts[1]), nil
	}
	v, err := convertValue(o)
	if err != nil {
		return dbquery.Expression{}, err
	}
	return dbquery.NewExpressionFromValue(v), nil
}

func convertValue(o *operandAST) (dbconstant.Value, error) {
	switch {
	case o.Null:
		return dbconstant.Null(), nil
	case o.Int != nil:
		i, err := strconv.ParseInt(*o.Int, 10, 64)
		if err != nil {
			return dbconstant.Value{}, syntaxError(fmt.Sprintf("invalid integer %s", *o.Int))
		}
		return dbconstant.NewInt(i), nil
	case o.String != nil:
		return dbconstant.NewText(string(*o.String)), nil
	}
	return dbconstant.Value{}, syntaxError(fmt.Sprintf("expected a constant, got column %s", strings.Join(o.Column.Parts, ".")))
}

func convertInsert(ins *insertAST) (*InsertData, error) {
	rows := make([][]dbconstant.Value, len(ins.Rows))
	for i, r := range ins.Rows {
		row := make([]dbconstant.Value, len(r.Values))
		for j, o := range r.Values {
			v, err := convertValue(o)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		rows[i] = row
	}
	return NewInsertData(ins.Table, ins.Columns, rows), nil
}

func convertCreateTable(ct *createTableAST) (*CreateTableData, error) {
	schema := dbrecord.NewSchema()
	for _, c := range ct.Columns {
		switch strings.ToUpper(c.Type) {
		case "INT", "INTEGER":
			if c.Length != nil {
				return nil, syntaxError(fmt.Sprintf("column %s: %s takes no length", c.Name, c.Type))
			}
			schema.AddIntField(c.Name)
		case "TEXT", "VARCHAR":
			length := 0
			if c.Length != nil {
				n, err := strconv.ParseUint(*c.Length, 10, 32)
				if err != nil {
					return nil, syntaxError(fmt.Sprintf("column %s: invalid length %s", c.Name, *c.Length))
				}
				length = int(n)
			}
			schema.AddTextField(c.Name, length)
		default:
			return nil, syntaxError(fmt.Sprintf("column %s: unknown type %s", c.Name, c.Type))
		}
	}
	return NewCreateTableData(ct.Table, schema), nil
}
