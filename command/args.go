package command

import (
	"errors"
	"fmt"
	"strconv"
)

// ArgKind is the type an argument token must parse as.
type ArgKind int

const (
	Uint ArgKind = iota
	Int
	Float
)

// String returns the kind name.
func (k ArgKind) String() string {
	switch k {
	case Uint:
		return "uint"
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

var errBadArgument = errors.New("malformed argument")

type value struct {
	u uint32
	i int32
	f float64
}

// Args holds the parsed arguments of one command line.
type Args struct {
	values []value
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a.values)
}

// Uint returns argument i, which must have been declared Uint.
func (a Args) Uint(i int) uint32 {
	return a.values[i].u
}

// Int returns argument i, which must have been declared Int.
func (a Args) Int(i int) int32 {
	return a.values[i].i
}

// Float returns argument i, which must have been declared Float.
func (a Args) Float(i int) float64 {
	return a.values[i].f
}

// parseArg converts one token. Integers accept decimal, 0x hex and 0 octal
// notation.
func parseArg(kind ArgKind, tok string) (value, error) {
	switch kind {
	case Uint:
		v, err := strconv.ParseUint(tok, 0, 32)
		if err != nil {
			return value{}, fmt.Errorf("%w %q: %w", errBadArgument, tok, err)
		}
		return value{u: uint32(v)}, nil
	case Int:
		v, err := strconv.ParseInt(tok, 0, 32)
		if err != nil {
			return value{}, fmt.Errorf("%w %q: %w", errBadArgument, tok, err)
		}
		return value{i: int32(v)}, nil
	case Float:
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return value{}, fmt.Errorf("%w %q: %w", errBadArgument, tok, err)
		}
		return value{f: v}, nil
	default:
		return value{}, fmt.Errorf("%w: kind %d", errBadArgument, kind)
	}
}
