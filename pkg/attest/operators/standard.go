package operators

import (
	"fmt"
	"reflect"
	"strings"
)

// RegisterStandard installs the stock named operators:
//
//	`contains`     left string contains right, or left slice/map holds right
//	`starts with`  string prefix
//	`ends with`    string suffix
//	`divides`      left integer divides right integer
func RegisterStandard(r *Registry) {
	_ = r.Register("contains", contains)
	_ = r.Register("starts with", stringOp(strings.HasPrefix))
	_ = r.Register("ends with", stringOp(strings.HasSuffix))
	_ = r.Register("divides", divides)
}

func stringOp(fn func(s, affix string) bool) Func {
	return func(left, right any) (bool, error) {
		ls, lok := asString(left)
		rs, rok := asString(right)
		if !lok || !rok {
			return false, fmt.Errorf("%w: %T and %T", ErrIncomparable, left, right)
		}
		return fn(ls, rs), nil
	}
}

func contains(left, right any) (bool, error) {
	if ls, ok := asString(left); ok {
		rs, ok := asString(right)
		if !ok {
			return false, fmt.Errorf("%w: %T and %T", ErrIncomparable, left, right)
		}
		return strings.Contains(ls, rs), nil
	}

	lv := reflect.ValueOf(left)
	switch lv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < lv.Len(); i++ {
			eq, err := equal(lv.Index(i).Interface(), right)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		rv := reflect.ValueOf(right)
		if right == nil || !rv.Type().AssignableTo(lv.Type().Key()) {
			return false, nil
		}
		return lv.MapIndex(rv).IsValid(), nil
	}
	return false, fmt.Errorf("%w: %T cannot contain %T", ErrIncomparable, left, right)
}

func divides(left, right any) (bool, error) {
	lv, rv := reflect.ValueOf(left), reflect.ValueOf(right)
	if !isInteger(lv) || !isInteger(rv) {
		return false, fmt.Errorf("%w: %T and %T", ErrIncomparable, left, right)
	}
	d, n := magnitude(lv), magnitude(rv)
	if d == 0 {
		return false, nil
	}
	return n%d == 0, nil
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func isInteger(v reflect.Value) bool {
	return kindClass(v.Kind()) == classNumber && !isFloat(v.Kind())
}

// magnitude returns |v| as a uint64. Divisibility ignores sign, so mixed
// signed and unsigned operands compare without wrapping.
func magnitude(v reflect.Value) uint64 {
	if !isSigned(v.Kind()) {
		return v.Uint()
	}
	i := v.Int()
	if i < 0 {
		return uint64(-(i + 1)) + 1
	}
	return uint64(i)
}
