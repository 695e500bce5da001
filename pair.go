package mandel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrMalformedPair = errors.New("malformed pair")
	ErrInvalidBounds = errors.New("invalid image dimensions")
)

// Number is the set of types ParsePair can produce.
type Number interface {
	int | int32 | int64 | uint | uint32 | uint64 | float32 | float64
}

// ParsePair parses s as a coordinate pair like "400x600" or "1.0,0.5".
//
// s must have the form <left><sep><right>, split at the first sep, where both
// <left> and <right> parse completely as T. Any failure wraps ErrMalformedPair.
func ParsePair[T Number](s string, sep rune) (T, T, error) {
	index := strings.IndexRune(s, sep)
	if index < 0 {
		return 0, 0, fmt.Errorf("%w: %q: no %q separator", ErrMalformedPair, s, sep)
	}

	l, err := parseNumber[T](s[:index])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %w", ErrMalformedPair, s, err)
	}
	_, sepLen := utf8.DecodeRuneInString(s[index:])
	r, err := parseNumber[T](s[index+sepLen:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %w", ErrMalformedPair, s, err)
	}
	return l, r, nil
}

func parseNumber[T Number](s string) (T, error) {
	var v T
	var err error

	switch p := any(&v).(type) {
	case *int:
		*p, err = strconv.Atoi(s)
	case *int32:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		*p = int32(n)
	case *int64:
		*p, err = strconv.ParseInt(s, 10, 64)
	case *uint:
		var n uint64
		n, err = strconv.ParseUint(s, 10, strconv.IntSize)
		*p = uint(n)
	case *uint32:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 32)
		*p = uint32(n)
	case *uint64:
		*p, err = strconv.ParseUint(s, 10, 64)
	case *float32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		*p = float32(f)
	case *float64:
		*p, err = strconv.ParseFloat(s, 64)
	}
	return v, err
}

// ParseComplex parses "<re>,<im>" into a complex number.
func ParseComplex(s string) (complex128, error) {
	re, im, err := ParsePair[float64](s, ',')
	if err != nil {
		return 0, err
	}
	return complex(re, im), nil
}

// ParseBounds parses image dimensions like "1000x750".
// Both dimensions must be positive and their product must fit in an int.
func ParseBounds(s string) (Bounds, error) {
	w, h, err := ParsePair[int](s, 'x')
	if err != nil {
		return Bounds{}, err
	}
	if w <= 0 || h <= 0 {
		return Bounds{}, fmt.Errorf("%w: %q: must be positive", ErrInvalidBounds, s)
	}
	if w > math.MaxInt/h {
		return Bounds{}, fmt.Errorf("%w: %q: pixel count overflows int", ErrInvalidBounds, s)
	}
	return Bounds{Width: w, Height: h}, nil
}
