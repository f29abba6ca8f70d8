package subsetparams

import (
	"flag"
	"fmt"
	"strings"
)

// Flags holds the raw subset parameter lists collected from a FlagSet.
type Flags struct {
	Names []string
	Lows  []float64
	Highs []float64
}

// AddFlags registers -p/--parameter-names, -l/--low-thresholds and
// -j/--high-thresholds on fs. params names the parameters the caller
// supports, for the help text only.
func AddFlags(fs *flag.FlagSet, params ...string) *Flags {
	f := &Flags{}

	supported := strings.Join(params, ", ")

	names := func(v string) error {
		f.Names = append(f.Names, splitList(v)...)
		return nil
	}
	lows := func(v string) error {
		values, err := parseFloatList(v)
		if err != nil {
			return err
		}
		f.Lows = append(f.Lows, values...)
		return nil
	}
	highs := func(v string) error {
		values, err := parseFloatList(v)
		if err != nil {
			return err
		}
		f.Highs = append(f.Highs, values...)
		return nil
	}

	namesUsage := fmt.Sprintf("Comma-separated names of parameters to threshold on. Supported: %s.", supported)
	lowsUsage := "Comma-separated low cutoffs, one per parameter name. Default: -inf."
	highsUsage := "Comma-separated high cutoffs, one per parameter name. Default: inf."

	fs.Func("p", namesUsage, names)
	fs.Func("parameter-names", namesUsage, names)
	fs.Func("l", lowsUsage, lows)
	fs.Func("low-thresholds", lowsUsage, lows)
	fs.Func("j", highsUsage, highs)
	fs.Func("high-thresholds", highsUsage, highs)

	return f
}

// Spec zips the collected lists into thresholds.
func (f *Flags) Spec() (Spec, error) {
	return Zip(f.Names, f.Lows, f.Highs)
}
