// Package subsetparams turns the generic (name, low, high) threshold triples
// accepted on the command line into the named bounds of a specific step.
package subsetparams

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

// Parameter is a quantity that a threshold can be placed on.
type Parameter int

const (
	Unknown Parameter = iota
	Mean
	Disp
)

var parameterNames = map[Parameter]string{
	Mean: "mean",
	Disp: "disp",
}

// ParseParameter maps a threshold name onto a Parameter. Unrecognized names
// map to Unknown.
func ParseParameter(name string) Parameter {
	for k, v := range parameterNames {
		if v == name {
			return k
		}
	}

	return Unknown
}

func (p Parameter) String() string {
	if name, ok := parameterNames[p]; ok {
		return name
	}

	return "unknown"
}

// Threshold is one (name, low, high) triple.
type Threshold struct {
	Name string
	Low  float64
	High float64
}

// Spec is an ordered list of thresholds.
type Spec []Threshold

// Bounds are the lower and upper limits on mean expression and normalized
// dispersion. A bound that no threshold mentions stays null.
type Bounds struct {
	MinMean null.Float
	MaxMean null.Float
	MinDisp null.Float
	MaxDisp null.Float
}

func (b Bounds) String() string {
	return fmt.Sprintf("min_mean=%s max_mean=%s min_disp=%s max_disp=%s",
		fmtBound(b.MinMean), fmtBound(b.MaxMean), fmtBound(b.MinDisp), fmtBound(b.MaxDisp))
}

func fmtBound(f null.Float) string {
	if !f.Valid {
		return "None"
	}

	return strconv.FormatFloat(f.Float64, 'g', -1, 64)
}

// Zip pairs up parallel lists of names, lows and highs. An empty lows or
// highs list leaves that side unbounded (-Inf or +Inf); otherwise every list
// must have one entry per name.
func Zip(names []string, lows, highs []float64) (Spec, error) {
	if len(lows) > 0 && len(lows) != len(names) {
		return nil, fmt.Errorf("Got %d low thresholds for %d parameter names", len(lows), len(names))
	}
	if len(highs) > 0 && len(highs) != len(names) {
		return nil, fmt.Errorf("Got %d high thresholds for %d parameter names", len(highs), len(names))
	}

	out := make(Spec, 0, len(names))
	for i, name := range names {
		t := Threshold{Name: name, Low: math.Inf(-1), High: math.Inf(1)}
		if len(lows) > 0 {
			t.Low = lows[i]
		}
		if len(highs) > 0 {
			t.High = highs[i]
		}
		out = append(out, t)
	}

	return out, nil
}

// Resolve walks the thresholds in order. A mean threshold sets MinMean and
// MaxMean, a disp threshold sets MinDisp and MaxDisp, and anything else is
// reported and skipped. When a name repeats, the last threshold wins.
func Resolve(spec Spec) Bounds {
	var b Bounds
	seen := make(map[Parameter]Threshold)

	for _, t := range spec {
		p := ParseParameter(t.Name)

		switch p {
		case Mean:
			b.MinMean = null.FloatFrom(t.Low)
			b.MaxMean = null.FloatFrom(t.High)
		case Disp:
			b.MinDisp = null.FloatFrom(t.Low)
			b.MaxDisp = null.FloatFrom(t.High)
		default:
			log.Warnf("Unsupported parameter name %q, omitted", t.Name)
			continue
		}

		if prev, dup := seen[p]; dup {
			log.Warnf("Parameter %q was given more than once: low=%g high=%g replaces low=%g high=%g", p, t.Low, t.High, prev.Low, prev.High)
		}
		seen[p] = t
	}

	return b
}

func parseFloatList(v string) ([]float64, error) {
	fields := splitList(v)
	out := make([]float64, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", field)
		}
		out = append(out, f)
	}

	return out, nil
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, field := range strings.Split(v, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}

	return out
}
