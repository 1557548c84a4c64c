package audio

import (
	"fmt"
	"sort"
	"strings"

	"audio-policy/internal/common/errors"

	"github.com/samber/lo"
)

// enumTable maps the symbolic names used by configuration files and the
// control surface to numeric values.
type enumTable[T ~uint32 | ~int32] struct {
	kind    string
	byValue map[T]string
	byName  map[string]T
}

func newEnumTable[T ~uint32 | ~int32](kind string, names map[T]string) enumTable[T] {
	return enumTable[T]{
		kind:    kind,
		byValue: names,
		byName:  lo.Invert(names),
	}
}

func (e enumTable[T]) format(v T) string {
	if name, ok := e.byValue[v]; ok {
		return name
	}
	return fmt.Sprintf("%s(%#x)", e.kind, uint32(v))
}

func (e enumTable[T]) parse(name string) (T, error) {
	if v, ok := e.byName[strings.TrimSpace(name)]; ok {
		return v, nil
	}
	var zero T
	return zero, errors.InvalidArgumentError(fmt.Sprintf("unknown %s %q", e.kind, name), nil)
}

func (e enumTable[T]) known(v T) bool {
	_, ok := e.byValue[v]
	return ok
}

// flagTable handles bit sets written as NAME|NAME.
type flagTable[T ~uint32] struct {
	enumTable[T]
	none T
}

func newFlagTable[T ~uint32](kind string, names map[T]string) flagTable[T] {
	return flagTable[T]{enumTable: newEnumTable(kind, names)}
}

func (f flagTable[T]) format(v T) string {
	if v == f.none {
		return f.enumTable.format(v)
	}

	bits := lo.Filter(lo.Keys(f.byValue), func(bit T, _ int) bool {
		return bit != f.none && v&bit == bit
	})
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	var rest T = v
	names := make([]string, 0, len(bits))
	for _, bit := range bits {
		names = append(names, f.byValue[bit])
		rest &^= bit
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

func (f flagTable[T]) parse(text string) (T, error) {
	var out T
	for _, part := range strings.Split(text, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := f.enumTable.parse(part)
		if err != nil {
			return 0, err
		}
		out |= v
	}
	return out, nil
}
