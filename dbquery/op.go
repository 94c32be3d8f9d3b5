package dbquery

import "fmt"

type Op int

const (
	OpEqual Op = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

func ParseOp(s string) (Op, error) {
	switch s {
	case "=":
		return OpEqual, nil
	case "!=", "<>":
		return OpNotEqual, nil
	case "<":
		return OpLess, nil
	case "<=":
		return OpLessEqual, nil
	case ">":
		return OpGreater, nil
	case ">=":
		return OpGreaterEqual, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Apply interprets the result of Value.Compare.
func (o Op) Apply(cmp int) bool {
	switch o {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

// Truth is a three-valued logic value. Comparisons with NULL are Unknown.
type Truth int

const (
	False Truth = iota
	True
	Unknown
)

func TruthOf(b bool) Truth {
	if b {
		return True
	}
	return False
}

func (t Truth) And(other Truth) Truth {
	switch {
	case t == False || other == False:
		return False
	case t == Unknown || other == Unknown:
		return Unknown
	}
	return True
}

func (t Truth) Or(other Truth) Truth {
	switch {
	case t == True || other == True:
		return True
	case t == Unknown || other == Unknown:
		return Unknown
	}
	return False
}

func (t Truth) Not() Truth {
	switch t {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

func (t Truth) String() string {
	switch t {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	}
	return "UNKNOWN"
}
