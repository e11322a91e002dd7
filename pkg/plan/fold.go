package plan

import (
	"litedb/pkg/parser"
)

// FoldExpr constant-folds an expression bottom-up: any operator whose
// operands reduce to constants is replaced by its value. The pass is
// idempotent and preserves meaning for any binding of column
// references. A constant subexpression with incompatible types fails
// with TypeMismatch at fold time.
func FoldExpr(e parser.Expr) (parser.Expr, error) {
	switch v := e.(type) {
	case parser.ConstExpr, parser.ColumnRef:
		return e, nil

	case parser.UnaryExpr:
		operand, err := FoldExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		if c, ok := operand.(parser.ConstExpr); ok {
			folded, err := ApplyUnary(v.Op, c.Value, false)
			if err != nil {
				return nil, err
			}
			return parser.ConstExpr{Value: folded}, nil
		}
		return parser.UnaryExpr{Op: v.Op, Operand: operand}, nil

	case parser.BinaryExpr:
		left, err := FoldExpr(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := FoldExpr(v.Right)
		if err != nil {
			return nil, err
		}

		lc, lok := left.(parser.ConstExpr)
		rc, rok := right.(parser.ConstExpr)
		if lok && rok {
			folded, err := ApplyBinary(v.Op, lc.Value, rc.Value, false)
			if err != nil {
				return nil, err
			}
			return parser.ConstExpr{Value: folded}, nil
		}
		return parser.BinaryExpr{Op: v.Op, Left: left, Right: right}, nil

	default:
		return e, nil
	}
}

// FoldSelect returns a copy of the statement with every select item
// and the WHERE predicate constant-folded.
func FoldSelect(stmt *parser.SelectStatement) (*parser.SelectStatement, error) {
	out := &parser.SelectStatement{From: stmt.From}

	for _, item := range stmt.Items {
		if item.Star {
			out.Items = append(out.Items, item)
			continue
		}
		folded, err := FoldExpr(item.Expr)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, parser.SelectItem{Expr: folded, Alias: item.Alias})
	}

	if stmt.Where != nil {
		where, err := FoldExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		out.Where = where
	}
	return out, nil
}
