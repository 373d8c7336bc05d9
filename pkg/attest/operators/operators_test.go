package operators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/attest/pkg/attest/fixedstr"
	"github.com/chosenoffset/attest/pkg/attest/parser"
)

func TestCompareBuiltins(t *testing.T) {
	tests := []struct {
		name     string
		op       parser.TokenType
		left     any
		right    any
		expected bool
	}{
		{"ints equal", parser.EQ, 5, 5, true},
		{"ints differ", parser.EQ, 5, 6, false},
		{"not equals", parser.NOT_EQ, 41, 42, true},
		{"mixed widths", parser.EQ, int8(7), int64(7), true},
		{"signed vs unsigned", parser.LT, -1, uint(0), true},
		{"unsigned vs signed", parser.GT, uint64(math.MaxUint64), int64(math.MaxInt64), true},
		{"unsigned vs negative", parser.GT, uint8(0), -3, true},
		{"int vs float", parser.LTE, 3, 3.5, true},
		{"float equality", parser.EQ, float32(0.5), 0.5, true},
		{"greater", parser.GT, 10, 2, true},
		{"greater equal", parser.GTE, 2, 2, true},
		{"less", parser.LT, 2, 2, false},
		{"strings", parser.LT, "apple", "banana", true},
		{"strings equal", parser.EQ, "x", "x", true},
		{"fixed strings by length", parser.LT, fixedstr.String("zz"), fixedstr.String("aaa"), true},
		{"fixed vs plain string", parser.EQ, fixedstr.String("abc"), "abc", true},
		{"bools", parser.EQ, true, true, true},
		{"bools differ", parser.NOT_EQ, true, false, true},
		{"durations", parser.GT, 2 * time.Second, time.Second, true},
		{"structs", parser.EQ, struct{ A int }{1}, struct{ A int }{1}, true},
		{"slices", parser.NOT_EQ, []int{1, 2}, []int{1, 3}, true},
		{"nil pair", parser.EQ, nil, nil, true},
		{"nil vs value", parser.NOT_EQ, nil, 1, true},
		{"NaN", parser.EQ, math.NaN(), math.NaN(), false},
		{"NaN not equal", parser.NOT_EQ, math.NaN(), 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, tt.left, tt.right)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareTimes(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	got, err := Compare(parser.LT, earlier, later)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Compare(parser.EQ, earlier, earlier.In(time.FixedZone("X", 3600)))
	require.NoError(t, err)
	assert.True(t, got, "same instant in a different zone")
}

func TestCompareIncomparable(t *testing.T) {
	cases := []struct {
		op          parser.TokenType
		left, right any
	}{
		{parser.LT, true, false},
		{parser.GT, struct{}{}, struct{}{}},
		{parser.EQ, 1, "1"},
		{parser.GTE, math.NaN(), 1.0},
		{parser.LT, nil, 1},
	}
	for _, tc := range cases {
		_, err := Compare(tc.op, tc.left, tc.right)
		assert.ErrorIs(t, err, ErrIncomparable, "%T %s %T", tc.left, tc.op, tc.right)
	}

	type hidden struct{ v int }
	_, err := Compare(parser.EQ, hidden{1}, hidden{1})
	assert.ErrorIs(t, err, ErrIncomparable)
}

func TestCompareRejectsUserTokens(t *testing.T) {
	_, err := Compare(parser.OPERATOR, 1, 1)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestResolveCallables(t *testing.T) {
	got, err := Compare(parser.EQ, func() float32 { return 42 }, 42)
	require.NoError(t, err)
	assert.True(t, got)

	v, err := Resolve(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	boom := errors.New("boom")
	_, err = Resolve(func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	// Functions that take arguments are values, not thunks.
	fn := func(int) int { return 1 }
	v, err = Resolve(fn)
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("divides")
	assert.False(t, ok)

	_, err := r.Apply("divides", 2, 4)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	require.NoError(t, r.Register("divides", divides))
	got, err := r.Apply("divides", 3, 9)
	require.NoError(t, err)
	assert.True(t, got)

	assert.Error(t, r.Register("", divides))
	assert.Error(t, r.Register("x", nil))
	assert.Error(t, r.Register("equals", divides))

	boom := errors.New("boom")
	require.NoError(t, r.Register("fails", func(any, any) (bool, error) { return false, boom }))
	_, err = r.Apply("fails", 1, 2)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"divides", "fails"}, r.Names())

	r.Unregister("fails")
	assert.Equal(t, []string{"divides"}, r.Names())
}

func TestStandardOperators(t *testing.T) {
	r := NewRegistry()
	RegisterStandard(r)

	tests := []struct {
		op          string
		left, right any
		expected    bool
	}{
		{"contains", "hello world", "lo w", true},
		{"contains", fixedstr.String("abc"), "d", false},
		{"contains", []int{1, 2, 3}, 2, true},
		{"contains", []string{"a"}, "b", false},
		{"contains", map[string]int{"k": 1}, "k", true},
		{"contains", map[string]int{"k": 1}, 3, false},
		{"starts with", "prefix-body", "prefix", true},
		{"ends with", "prefix-body", "prefix", false},
		{"divides", 3, 12, true},
		{"divides", uint(5), 12, false},
		{"divides", 0, 12, false},
		{"divides", -4, 12, true},
		{"divides", uint64(math.MaxUint64), 5, false},
		{"divides", 5, uint64(math.MaxUint64), true},
		{"divides", int64(math.MinInt64), uint64(1) << 63, true},
		{"divides", uint8(7), int64(-14), true},
	}

	for _, tt := range tests {
		got, err := r.Apply(tt.op, tt.left, tt.right)
		require.NoError(t, err, "%v `%s` %v", tt.left, tt.op, tt.right)
		assert.Equal(t, tt.expected, got, "%v `%s` %v", tt.left, tt.op, tt.right)
	}

	_, err := r.Apply("divides", 1.5, 3)
	assert.ErrorIs(t, err, ErrIncomparable)
	_, err = r.Apply("starts with", 1, "x")
	assert.ErrorIs(t, err, ErrIncomparable)
	_, err = r.Apply("contains", 12, 1)
	assert.ErrorIs(t, err, ErrIncomparable)
}
