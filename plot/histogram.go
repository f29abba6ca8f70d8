package plot

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"gonum.org/v1/gonum/floats"
)

// FprintHistogram writes a text histogram of the finite values to w. Nothing
// is written when there are none.
func FprintHistogram(w io.Writer, values []float64, bins int) error {
	data := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			data = append(data, v)
		}
	}

	if len(data) == 0 {
		return nil
	}

	// A histogram of identical values has no width to bucket
	if floats.Min(data) == floats.Max(data) {
		_, err := fmt.Fprintf(w, "%d values, all equal to %g\n", len(data), data[0])
		return err
	}

	hist := histogram.Hist(bins, data)

	return histogram.Fprint(w, hist, histogram.Linear(40))
}
