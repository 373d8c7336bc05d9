package operators

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/google/go-cmp/cmp"

	"github.com/chosenoffset/attest/pkg/attest/parser"
)

var (
	ErrIncomparable        = errors.New("values are not comparable")
	ErrUnsupportedOperator = errors.New("unsupported operator")
)

// Compare applies the builtin comparison tt to left and right.
//
// Integers compare across widths and signedness, floats follow IEEE rules
// (NaN is unordered), string kinds compare as text and bools support only
// equality. A value with a Compare(T) int method, such as time.Time or
// fixedstr.String, is ordered by that method. Any other equality falls back
// to cmp.Equal.
func Compare(tt parser.TokenType, left, right any) (bool, error) {
	if !tt.IsBuiltin() {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, tt)
	}

	left, err := Resolve(left)
	if err != nil {
		return false, err
	}
	right, err = Resolve(right)
	if err != nil {
		return false, err
	}

	c, ok, err := order(left, right)
	if err != nil {
		return false, err
	}
	if !ok {
		// Unordered pair: only (in)equality is defined.
		switch tt {
		case parser.EQ, parser.NOT_EQ:
			eq, err := equal(left, right)
			if err != nil {
				return false, err
			}
			return eq == (tt == parser.EQ), nil
		default:
			return false, fmt.Errorf("%w: %T %s %T", ErrIncomparable, left, tt, right)
		}
	}

	switch tt {
	case parser.EQ:
		return c == 0, nil
	case parser.NOT_EQ:
		return c != 0, nil
	case parser.GTE:
		return c >= 0, nil
	case parser.GT:
		return c > 0, nil
	case parser.LTE:
		return c <= 0, nil
	default:
		return c < 0, nil
	}
}

// Resolve calls v if it is a function taking no arguments and returning a
// single value, optionally followed by an error. Any other value is
// returned unchanged.
func Resolve(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return v, nil
	}
	ft := rv.Type()
	if ft.NumIn() != 0 || ft.IsVariadic() {
		return v, nil
	}
	errType := reflect.TypeOf((*error)(nil)).Elem()
	switch {
	case ft.NumOut() == 1:
		return rv.Call(nil)[0].Interface(), nil
	case ft.NumOut() == 2 && ft.Out(1) == errType:
		out := rv.Call(nil)
		if !out[1].IsNil() {
			return nil, fmt.Errorf("resolving argument: %w", out[1].Interface().(error))
		}
		return out[0].Interface(), nil
	}
	return v, nil
}

// order returns the three-way comparison of l and r. ok is false when the
// pair has no ordering (bools, NaN, structs without Compare).
func order(l, r any) (c int, ok bool, err error) {
	if l == nil || r == nil {
		return 0, false, nil
	}

	if c, ok := compareMethod(l, r); ok {
		return c, true, nil
	}

	lv, rv := reflect.ValueOf(l), reflect.ValueOf(r)
	lk, rk := kindClass(lv.Kind()), kindClass(rv.Kind())

	switch {
	case lk == classNumber && rk == classNumber:
		c, ok := compareNumbers(lv, rv)
		return c, ok, nil
	case lk == classString && rk == classString:
		ls, rs := lv.String(), rv.String()
		switch {
		case ls < rs:
			return -1, true, nil
		case ls > rs:
			return 1, true, nil
		}
		return 0, true, nil
	case lk != rk && lk != classOther && rk != classOther:
		return 0, false, fmt.Errorf("%w: %T and %T", ErrIncomparable, l, r)
	}
	return 0, false, nil
}

func equal(l, r any) (eq bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			eq, err = false, fmt.Errorf("%w: %v", ErrIncomparable, p)
		}
	}()
	return cmp.Equal(l, r), nil
}

// compareMethod uses l.Compare(r) when l has such a method accepting r.
func compareMethod(l, r any) (int, bool) {
	m := reflect.ValueOf(l).MethodByName("Compare")
	if !m.IsValid() {
		return 0, false
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Int {
		return 0, false
	}
	rv := reflect.ValueOf(r)
	if !rv.Type().AssignableTo(mt.In(0)) {
		return 0, false
	}
	return int(m.Call([]reflect.Value{rv})[0].Int()), true
}

type valueClass int

const (
	classOther valueClass = iota
	classNumber
	classString
	classBool
)

func kindClass(k reflect.Kind) valueClass {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return classNumber
	case reflect.String:
		return classString
	case reflect.Bool:
		return classBool
	}
	return classOther
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func compareNumbers(l, r reflect.Value) (int, bool) {
	lk, rk := l.Kind(), r.Kind()

	if isFloat(lk) || isFloat(rk) {
		lf, rf := toFloat(l), toFloat(r)
		if math.IsNaN(lf) || math.IsNaN(rf) {
			return 0, false
		}
		return threeWay(lf, rf), true
	}

	switch {
	case isSigned(lk) && isSigned(rk):
		return threeWay(l.Int(), r.Int()), true
	case !isSigned(lk) && !isSigned(rk):
		return threeWay(l.Uint(), r.Uint()), true
	case isSigned(lk):
		if l.Int() < 0 {
			return -1, true
		}
		return threeWay(uint64(l.Int()), r.Uint()), true
	default:
		if r.Int() < 0 {
			return 1, true
		}
		return threeWay(l.Uint(), uint64(r.Int())), true
	}
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v.Kind()):
		return v.Float()
	case isSigned(v.Kind()):
		return float64(v.Int())
	default:
		return float64(v.Uint())
	}
}

func threeWay[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
