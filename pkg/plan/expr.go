package plan

import (
	"fmt"

	"litedb/pkg/dberr"
	"litedb/pkg/parser"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// Expr is an expression with column references resolved to positional
// indices against the child node's output schema. It is the form the
// interpreter evaluates.
type Expr interface {
	fmt.Stringer
	planExpr()
}

// Const is a literal value.
type Const struct {
	Value types.Value
}

func (Const) planExpr() {}

func (e Const) String() string { return e.Value.String() }

// ColRef reads column Index of the input row.
type ColRef struct {
	Index int
	// Name is kept for display only.
	Name string
}

func (ColRef) planExpr() {}

func (e ColRef) String() string { return fmt.Sprintf("%s#%d", e.Name, e.Index) }

// Binary applies a binary operator.
type Binary struct {
	Op    parser.BinOp
	Left  Expr
	Right Expr
}

func (Binary) planExpr() {}

func (e Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// Unary applies a unary operator.
type Unary struct {
	Op      parser.UnOp
	Operand Expr
}

func (Unary) planExpr() {}

func (e Unary) String() string {
	return fmt.Sprintf("(%s%s)", e.Op, e.Operand)
}

// Resolve lowers a parsed expression against a schema, turning column
// names into positions. Unresolved names fail with UnknownColumn.
func Resolve(e parser.Expr, desc *tuple.RowDescription) (Expr, error) {
	switch v := e.(type) {
	case parser.ConstExpr:
		return Const{Value: v.Value}, nil

	case parser.ColumnRef:
		if desc == nil {
			return nil, dberr.Newf(dberr.UnknownColumn, "no such column: %s", v.Name)
		}
		idx, err := desc.FindColumn(v.Name)
		if err != nil {
			return nil, err
		}
		return ColRef{Index: idx, Name: v.Name}, nil

	case parser.BinaryExpr:
		left, err := Resolve(v.Left, desc)
		if err != nil {
			return nil, err
		}
		right, err := Resolve(v.Right, desc)
		if err != nil {
			return nil, err
		}
		return Binary{Op: v.Op, Left: left, Right: right}, nil

	case parser.UnaryExpr:
		operand, err := Resolve(v.Operand, desc)
		if err != nil {
			return nil, err
		}
		return Unary{Op: v.Op, Operand: operand}, nil

	default:
		return nil, dberr.Newf(dberr.Internal, "unknown expression node %T", e)
	}
}

// Eval evaluates a resolved expression against one input row with a
// depth-first walk.
func Eval(e Expr, row *tuple.Row, strict bool) (types.Value, error) {
	switch v := e.(type) {
	case Const:
		return v.Value, nil

	case ColRef:
		val, err := row.ValueAt(v.Index)
		if err != nil {
			return nil, err
		}
		if val == nil {
			return types.NewNull(), nil
		}
		return val, nil

	case Binary:
		left, err := Eval(v.Left, row, strict)
		if err != nil {
			return nil, err
		}
		right, err := Eval(v.Right, row, strict)
		if err != nil {
			return nil, err
		}
		return ApplyBinary(v.Op, left, right, strict)

	case Unary:
		operand, err := Eval(v.Operand, row, strict)
		if err != nil {
			return nil, err
		}
		return ApplyUnary(v.Op, operand, strict)

	default:
		return nil, dberr.Newf(dberr.Internal, "unknown plan expression %T", e)
	}
}

// inferType predicts the output type of an expression against a
// schema. The prediction is best-effort; NULL-typed columns stay
// NULL-typed.
func inferType(e Expr, desc *tuple.RowDescription) types.Type {
	switch v := e.(type) {
	case Const:
		return v.Value.Type()
	case ColRef:
		if desc == nil {
			return types.NullType
		}
		t, err := desc.TypeAt(v.Index)
		if err != nil {
			return types.NullType
		}
		return t
	case Unary:
		return inferType(v.Operand, desc)
	case Binary:
		switch v.Op {
		case parser.OpAdd, parser.OpSub, parser.OpMul, parser.OpDiv:
			lt := inferType(v.Left, desc)
			rt := inferType(v.Right, desc)
			if lt == types.RealType || rt == types.RealType {
				return types.RealType
			}
			return types.IntType
		default:
			return types.IntType
		}
	default:
		return types.NullType
	}
}
