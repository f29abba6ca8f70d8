package anndata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the value type held by a Column.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	}

	return "string"
}

// Column is a single named annotation. Exactly one of the value slices is
// populated, matching Kind.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Floats  []float64
	Bools   []bool
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindFloat:
		return len(c.Floats)
	case KindBool:
		return len(c.Bools)
	}

	return len(c.Strings)
}

// Format renders value i for a delimited text file.
func (c *Column) Format(i int) string {
	switch c.Kind {
	case KindFloat:
		return formatFloat(c.Floats[i])
	case KindBool:
		if c.Bools[i] {
			return "True"
		}
		return "False"
	}

	return c.Strings[i]
}

// Frame is an ordered set of equal-length columns describing either the
// observations or the variables of an AnnData.
type Frame struct {
	n     int
	cols  []*Column
	index map[string]int
}

// NewFrame returns an empty frame whose columns must each hold n values.
func NewFrame(n int) *Frame {
	return &Frame{n: n, index: make(map[string]int)}
}

// Len is the number of rows every column of the frame holds.
func (f *Frame) Len() int { return f.n }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, 0, len(f.cols))
	for _, c := range f.cols {
		out = append(out, c.Name)
	}

	return out
}

// Column returns the named column, or nil.
func (f *Frame) Column(name string) *Column {
	i, ok := f.index[name]
	if !ok {
		return nil
	}

	return f.cols[i]
}

// Set adds c, replacing any existing column of the same name in place.
func (f *Frame) Set(c *Column) error {
	if c.Len() != f.n {
		return fmt.Errorf("Column %s has %d values, but the frame has %d rows", c.Name, c.Len(), f.n)
	}

	if i, exists := f.index[c.Name]; exists {
		f.cols[i] = c
		return nil
	}

	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)

	return nil
}

func (f *Frame) SetFloat(name string, values []float64) error {
	return f.Set(&Column{Name: name, Kind: KindFloat, Floats: values})
}

func (f *Frame) SetBool(name string, values []bool) error {
	return f.Set(&Column{Name: name, Kind: KindBool, Bools: values})
}

func (f *Frame) SetString(name string, values []string) error {
	return f.Set(&Column{Name: name, Kind: KindString, Strings: values})
}

// Float returns the values of a float column.
func (f *Frame) Float(name string) ([]float64, bool) {
	c := f.Column(name)
	if c == nil || c.Kind != KindFloat {
		return nil, false
	}

	return c.Floats, true
}

// Bool returns the values of a boolean column.
func (f *Frame) Bool(name string) ([]bool, bool) {
	c := f.Column(name)
	if c == nil || c.Kind != KindBool {
		return nil, false
	}

	return c.Bools, true
}

// String returns the values of a string column.
func (f *Frame) String(name string) ([]string, bool) {
	c := f.Column(name)
	if c == nil || c.Kind != KindString {
		return nil, false
	}

	return c.Strings, true
}

// inferColumn picks the narrowest kind that parses every value: bool, then
// float, then string.
func inferColumn(name string, raw []string) *Column {
	if bools, ok := parseBools(raw); ok {
		return &Column{Name: name, Kind: KindBool, Bools: bools}
	}

	if floats, ok := parseFloats(raw); ok {
		return &Column{Name: name, Kind: KindFloat, Floats: floats}
	}

	return &Column{Name: name, Kind: KindString, Strings: raw}
}

func parseBools(raw []string) ([]bool, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	out := make([]bool, len(raw))
	for i, v := range raw {
		switch strings.ToLower(v) {
		case "true":
			out[i] = true
		case "false":
			out[i] = false
		default:
			return nil, false
		}
	}

	return out, true
}

func parseFloats(raw []string) ([]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	out := make([]float64, len(raw))
	for i, v := range raw {
		f, err := parseFloat(v)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}

	return out, true
}

func parseFloat(v string) (float64, error) {
	switch v {
	case "", "NA", "nan", "NaN":
		return math.NaN(), nil
	}

	return strconv.ParseFloat(v, 64)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}
