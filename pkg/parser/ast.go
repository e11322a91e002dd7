package parser

import (
	"fmt"
	"strings"

	"litedb/pkg/dberr"
	"litedb/pkg/types"
)

// BinOp is a binary operator in an expression.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// UnOp is a unary operator in an expression.
type UnOp int

const (
	OpNeg UnOp = iota
)

func (op UnOp) String() string {
	return "-"
}

// Expr is a node of an expression tree.
type Expr interface {
	fmt.Stringer
	exprNode()
}

// ConstExpr is a literal value.
type ConstExpr struct {
	Value types.Value
}

func (ConstExpr) exprNode() {}

func (e ConstExpr) String() string {
	if t, ok := e.Value.(types.TextValue); ok {
		return "'" + strings.ReplaceAll(t.Value, "'", "''") + "'"
	}
	return e.Value.String()
}

// ColumnRef is a reference to a column by name.
type ColumnRef struct {
	Name string
}

func (ColumnRef) exprNode() {}

func (e ColumnRef) String() string { return e.Name }

// BinaryExpr applies a binary operator to two subexpressions.
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) exprNode() {}

func (e BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// UnaryExpr applies a unary operator to a subexpression.
type UnaryExpr struct {
	Op      UnOp
	Operand Expr
}

func (UnaryExpr) exprNode() {}

func (e UnaryExpr) String() string {
	return fmt.Sprintf("(%s%s)", e.Op, e.Operand)
}

// Statement is a parsed SQL statement.
type Statement interface {
	fmt.Stringer

	// Validate checks structural constraints that the grammar alone
	// does not enforce.
	Validate() error
}

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Type types.Type
}

// CreateTableStatement represents CREATE [TEMP] TABLE.
type CreateTableStatement struct {
	Database string // "main" or "temp"
	Table    string
	Strict   bool
	Columns  []ColumnDef
}

func (s *CreateTableStatement) Validate() error {
	if s.Table == "" {
		return dberr.New(dberr.Parse, "table name cannot be empty")
	}
	if len(s.Columns) == 0 {
		return dberr.New(dberr.Parse, "table must have at least one column")
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			return dberr.Newf(dberr.Parse, "duplicate column name %q", col.Name)
		}
		seen[lower] = true
	}
	return nil
}

func (s *CreateTableStatement) String() string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if s.Database == "temp" {
		sb.WriteString("TEMP ")
	}
	fmt.Fprintf(&sb, "TABLE %s (", s.Table)
	for i, col := range s.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", col.Name, col.Type)
	}
	sb.WriteString(")")
	if s.Strict {
		sb.WriteString(" STRICT")
	}
	return sb.String()
}

// InsertStatement represents INSERT INTO ... VALUES.
type InsertStatement struct {
	Database string
	Table    string
	Rows     [][]Expr
}

func (s *InsertStatement) Validate() error {
	if s.Table == "" {
		return dberr.New(dberr.Parse, "table name cannot be empty")
	}
	if len(s.Rows) == 0 {
		return dberr.New(dberr.Parse, "INSERT requires at least one row of values")
	}
	width := len(s.Rows[0])
	for i, row := range s.Rows {
		if len(row) != width {
			return dberr.Newf(dberr.Parse, "row %d has %d values, expected %d", i+1, len(row), width)
		}
	}
	return nil
}

func (s *InsertStatement) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s VALUES ", s.Table)
	for i, row := range s.Rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, e := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// SelectItem is one output of a SELECT: either * or an expression with
// an optional alias.
type SelectItem struct {
	Star  bool
	Expr  Expr
	Alias string
}

func (it SelectItem) String() string {
	if it.Star {
		return "*"
	}
	if it.Alias != "" {
		return fmt.Sprintf("%s AS %s", it.Expr, it.Alias)
	}
	return it.Expr.String()
}

// TableRef names a table, qualified by database.
type TableRef struct {
	Database string
	Table    string
}

func (r TableRef) String() string {
	if r.Database != "" && r.Database != "main" {
		return r.Database + "." + r.Table
	}
	return r.Table
}

// SelectStatement represents SELECT.
type SelectStatement struct {
	Items []SelectItem
	From  *TableRef
	Where Expr
}

func (s *SelectStatement) Validate() error {
	if len(s.Items) == 0 {
		return dberr.New(dberr.Parse, "SELECT requires at least one output expression")
	}
	if s.From == nil {
		for _, it := range s.Items {
			if it.Star {
				return dberr.New(dberr.Parse, "cannot select * without a FROM clause")
			}
			if hasColumnRef(it.Expr) {
				return dberr.New(dberr.Parse, "cannot reference columns without a FROM clause")
			}
		}
		if s.Where != nil {
			return dberr.New(dberr.Parse, "WHERE requires a FROM clause")
		}
	}
	return nil
}

func (s *SelectStatement) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, it := range s.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(it.String())
	}
	if s.From != nil {
		fmt.Fprintf(&sb, " FROM %s", s.From)
	}
	if s.Where != nil {
		fmt.Fprintf(&sb, " WHERE %s", s.Where)
	}
	return sb.String()
}

// hasColumnRef reports whether any ColumnRef occurs in the expression.
func hasColumnRef(e Expr) bool {
	switch v := e.(type) {
	case ColumnRef:
		return true
	case BinaryExpr:
		return hasColumnRef(v.Left) || hasColumnRef(v.Right)
	case UnaryExpr:
		return hasColumnRef(v.Operand)
	default:
		return false
	}
}
