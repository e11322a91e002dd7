package plan

import (
	"bytes"
	"strconv"

	"litedb/pkg/dberr"
	"litedb/pkg/parser"
	"litedb/pkg/types"
)

// ApplyBinary evaluates a binary operator over two values.
//
// Arithmetic follows SQLite semantics: integer arithmetic wraps at 64
// bits, any real operand makes the result real, and division by zero
// yields NULL. NULL propagates through every operator. In strict mode
// text operands in arithmetic are a TypeMismatch; otherwise they are
// coerced to a number when they parse as one.
func ApplyBinary(op parser.BinOp, l, r types.Value, strict bool) (types.Value, error) {
	if types.IsNull(l) || types.IsNull(r) {
		return types.NewNull(), nil
	}

	switch op {
	case parser.OpAdd, parser.OpSub, parser.OpMul, parser.OpDiv:
		return applyArithmetic(op, l, r, strict)
	default:
		return applyComparison(op, l, r, strict)
	}
}

// ApplyUnary evaluates a unary operator over a value.
func ApplyUnary(op parser.UnOp, v types.Value, strict bool) (types.Value, error) {
	if types.IsNull(v) {
		return types.NewNull(), nil
	}

	switch op {
	case parser.OpNeg:
		n, err := toNumeric(v, strict)
		if err != nil {
			return nil, err
		}
		switch val := n.(type) {
		case types.IntValue:
			return types.NewInt(-val.Value), nil
		case types.RealValue:
			return types.NewReal(-val.Value), nil
		}
	}
	return nil, dberr.Newf(dberr.Internal, "unknown unary operator %v", op)
}

func applyArithmetic(op parser.BinOp, l, r types.Value, strict bool) (types.Value, error) {
	ln, err := toNumeric(l, strict)
	if err != nil {
		return nil, err
	}
	rn, err := toNumeric(r, strict)
	if err != nil {
		return nil, err
	}

	li, lIsInt := ln.(types.IntValue)
	ri, rIsInt := rn.(types.IntValue)
	if lIsInt && rIsInt {
		return intArithmetic(op, li.Value, ri.Value)
	}
	return realArithmetic(op, asFloat(ln), asFloat(rn))
}

func intArithmetic(op parser.BinOp, l, r int64) (types.Value, error) {
	switch op {
	case parser.OpAdd:
		return types.NewInt(l + r), nil
	case parser.OpSub:
		return types.NewInt(l - r), nil
	case parser.OpMul:
		return types.NewInt(l * r), nil
	case parser.OpDiv:
		if r == 0 {
			return types.NewNull(), nil
		}
		return types.NewInt(l / r), nil
	}
	return nil, dberr.Newf(dberr.Internal, "unknown arithmetic operator %v", op)
}

func realArithmetic(op parser.BinOp, l, r float64) (types.Value, error) {
	switch op {
	case parser.OpAdd:
		return types.NewReal(l + r), nil
	case parser.OpSub:
		return types.NewReal(l - r), nil
	case parser.OpMul:
		return types.NewReal(l * r), nil
	case parser.OpDiv:
		if r == 0 {
			return types.NewNull(), nil
		}
		return types.NewReal(l / r), nil
	}
	return nil, dberr.Newf(dberr.Internal, "unknown arithmetic operator %v", op)
}

func applyComparison(op parser.BinOp, l, r types.Value, strict bool) (types.Value, error) {
	lv := types.Normalize(l)
	rv := types.Normalize(r)

	// Same-class text and blob comparisons never coerce.
	if lt, ok := lv.(types.TextValue); ok {
		if rt, ok := rv.(types.TextValue); ok {
			return compareOrdered(op, compareStrings(lt.Value, rt.Value))
		}
	}
	if lb, ok := lv.(types.BlobValue); ok {
		if rb, ok := rv.(types.BlobValue); ok {
			switch op {
			case parser.OpEq:
				return types.NewBool(bytes.Equal(lb.Value, rb.Value)), nil
			case parser.OpNe:
				return types.NewBool(!bytes.Equal(lb.Value, rb.Value)), nil
			default:
				return nil, dberr.New(dberr.TypeMismatch, "blobs support only = and != comparisons")
			}
		}
	}

	ln, err := toNumeric(lv, strict)
	if err != nil {
		return nil, err
	}
	rn, err := toNumeric(rv, strict)
	if err != nil {
		return nil, err
	}

	lf, rf := asFloat(ln), asFloat(rn)
	switch {
	case lf < rf:
		return compareOrdered(op, -1)
	case lf > rf:
		return compareOrdered(op, 1)
	default:
		return compareOrdered(op, 0)
	}
}

func compareStrings(l, r string) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func compareOrdered(op parser.BinOp, cmp int) (types.Value, error) {
	switch op {
	case parser.OpEq:
		return types.NewBool(cmp == 0), nil
	case parser.OpNe:
		return types.NewBool(cmp != 0), nil
	case parser.OpLt:
		return types.NewBool(cmp < 0), nil
	case parser.OpLe:
		return types.NewBool(cmp <= 0), nil
	case parser.OpGt:
		return types.NewBool(cmp > 0), nil
	case parser.OpGe:
		return types.NewBool(cmp >= 0), nil
	}
	return nil, dberr.Newf(dberr.Internal, "unknown comparison operator %v", op)
}

// toNumeric reduces a value to IntValue or RealValue. Text is coerced
// outside strict mode when it parses as a number.
func toNumeric(v types.Value, strict bool) (types.Value, error) {
	switch val := types.Normalize(v).(type) {
	case types.IntValue, types.RealValue:
		return val, nil
	case types.TextValue:
		if strict {
			return nil, dberr.New(dberr.TypeMismatch, "text operand in arithmetic on a STRICT table")
		}
		if i, err := strconv.ParseInt(val.Value, 10, 64); err == nil {
			return types.NewInt(i), nil
		}
		if f, err := strconv.ParseFloat(val.Value, 64); err == nil {
			return types.NewReal(f), nil
		}
		return nil, dberr.Newf(dberr.TypeMismatch, "text value %q is not numeric", val.Value)
	default:
		return nil, dberr.Newf(dberr.TypeMismatch, "%s value in arithmetic expression", v.Type())
	}
}

func asFloat(v types.Value) float64 {
	switch val := v.(type) {
	case types.IntValue:
		return float64(val.Value)
	case types.RealValue:
		return val.Value
	default:
		return 0
	}
}
