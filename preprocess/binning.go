package preprocess

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// madNormalConstant rescales the median absolute deviation to be a consistent
// estimator of the standard deviation of normally distributed data.
const madNormalConstant = 0.6744897501960817

// equalWidthEdges splits [min(x), max(x)] into nBins equal-width intervals that
// are open on the left and closed on the right. The lowest edge is pushed down
// by 0.1% of the range so that the minimum falls inside the first bin.
func equalWidthEdges(x []float64, nBins int) []float64 {
	mn, mx := floats.Min(x), floats.Max(x)
	edges := make([]float64, nBins+1)

	if mn == mx {
		if mn != 0 {
			mn -= 0.001 * math.Abs(mn)
			mx += 0.001 * math.Abs(mx)
		} else {
			mn -= 0.001
			mx += 0.001
		}
		return floats.Span(edges, mn, mx)
	}

	floats.Span(edges, mn, mx)
	edges[0] -= (mx - mn) * 0.001

	return edges
}

// percentileEdges returns (-Inf, p10, p15, ..., p100, +Inf) of x with
// repeated edges collapsed.
func percentileEdges(x []float64) []float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	edges := []float64{math.Inf(-1)}
	for p := 10; p <= 100; p += 5 {
		edges = append(edges, percentile(sorted, float64(p)))
	}
	edges = append(edges, math.Inf(1))

	unique := edges[:1]
	for _, e := range edges[1:] {
		if e != unique[len(unique)-1] {
			unique = append(unique, e)
		}
	}
	if dropped := len(edges) - len(unique); dropped > 0 {
		log.Debugf("Dropped %d duplicate mean expression bin edges", dropped)
	}

	return unique
}

// percentile linearly interpolates between the closest ranks of sorted, the
// default method of numpy.percentile.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// assignBins places each value into the right-closed interval
// (edges[b], edges[b+1]]. Values outside every interval get bin -1.
func assignBins(x, edges []float64) []int {
	out := make([]int, len(x))
	for i, v := range x {
		b := sort.SearchFloat64s(edges, v) - 1
		if b < 0 || b >= len(edges)-1 || math.IsNaN(v) {
			b = -1
		}
		out[i] = b
	}

	return out
}

// groupDefined collects the non-NaN values of x into their bins.
func groupDefined(x []float64, bins []int, nBins int) [][]float64 {
	out := make([][]float64, nBins)
	for i, v := range x {
		if bins[i] < 0 || math.IsNaN(v) {
			continue
		}
		out[bins[i]] = append(out[bins[i]], v)
	}

	return out
}

// seuratNormalize z-scores each dispersion against the other genes in its
// equal-width mean bin. Bins without a defined standard deviation (a single
// gene) use their mean as the scale and zero as the center, giving those
// genes a normalized dispersion of 1.
func seuratNormalize(means, dispersions []float64, nBins int) []float64 {
	edges := equalWidthEdges(means, nBins)
	bins := assignBins(means, edges)
	groups := groupDefined(dispersions, bins, nBins)

	center := make([]float64, nBins)
	scale := make([]float64, nBins)
	for b, g := range groups {
		center[b], scale[b] = math.NaN(), math.NaN()
		if len(g) > 0 {
			center[b] = stat.Mean(g, nil)
		}
		if len(g) > 1 {
			scale[b] = stat.StdDev(g, nil)
		}
	}

	singles := make([]int, 0)
	for j, b := range bins {
		if b >= 0 && math.IsNaN(scale[b]) {
			singles = append(singles, j)
		}
	}
	if len(singles) > 0 {
		log.Debugf("Gene indices %v fell into a single bin: their normalized dispersion was set to 1. Decreasing `n_bins` will likely avoid this effect.", singles)
	}

	for b := range scale {
		if math.IsNaN(scale[b]) {
			scale[b] = center[b]
			center[b] = 0
		}
	}

	return normalize(dispersions, bins, center, scale)
}

// cellRangerNormalize centers each dispersion on the median of its
// percentile mean bin and scales by the normal-consistent median absolute
// deviation of that bin.
func cellRangerNormalize(means, dispersions []float64) ([]float64, error) {
	edges := percentileEdges(means)
	nBins := len(edges) - 1
	bins := assignBins(means, edges)
	groups := groupDefined(dispersions, bins, nBins)

	center := make([]float64, nBins)
	scale := make([]float64, nBins)
	for b, g := range groups {
		center[b], scale[b] = math.NaN(), math.NaN()
		if len(g) == 0 {
			continue
		}

		median, err := stats.Median(g)
		if err != nil {
			return nil, err
		}
		mad, err := stats.MedianAbsoluteDeviation(g)
		if err != nil {
			return nil, err
		}

		center[b] = median
		scale[b] = mad / madNormalConstant
	}

	return normalize(dispersions, bins, center, scale), nil
}

func normalize(dispersions []float64, bins []int, center, scale []float64) []float64 {
	out := make([]float64, len(dispersions))
	for j, d := range dispersions {
		if bins[j] < 0 {
			out[j] = math.NaN()
			continue
		}
		out[j] = (d - center[bins[j]]) / scale[bins[j]]
	}

	return out
}
