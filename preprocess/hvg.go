// Package preprocess implements the normalization and gene selection steps
// applied to a single-cell expression matrix.
package preprocess

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/carbocation/runningvariance"
	"github.com/carbocation/scgenomisc/anndata"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/guregu/null.v3"
)

// Flavor chooses the formula used to compute normalized dispersion.
type Flavor int

const (
	FlavorInvalid Flavor = iota

	// Seurat bins genes by their log mean expression into equal-width bins
	// and z-scores the log dispersion within each bin.
	Seurat

	// CellRanger bins genes by percentiles of mean expression and scales the
	// dispersion by the median absolute deviation within each bin.
	CellRanger
)

var flavorNames = map[Flavor]string{
	Seurat:     "seurat",
	CellRanger: "cell_ranger",
}

// FlavorNames lists the accepted flavor names.
func FlavorNames() []string {
	return []string{flavorNames[Seurat], flavorNames[CellRanger]}
}

// ParseFlavor maps "seurat" or "cell_ranger" onto a Flavor.
func ParseFlavor(name string) (Flavor, error) {
	for k, v := range flavorNames {
		if v == name {
			return k, nil
		}
	}

	return FlavorInvalid, fmt.Errorf("`flavor` needs to be one of %s, got %q", strings.Join(FlavorNames(), ", "), name)
}

func (f Flavor) String() string {
	if name, ok := flavorNames[f]; ok {
		return name
	}

	return "invalid"
}

// Defaults applied to unset bounds.
const (
	DefaultMinMean = 0.0125
	DefaultMaxMean = 3.0
	DefaultMinDisp = 0.5
	DefaultNBins   = 20
)

// DefaultMaxDisp is +Inf.
var DefaultMaxDisp = math.Inf(1)

// Options parameterize HighlyVariableGenes. Unset bounds fall back to the
// package defaults. When NTopGenes is set it overrides the bounds entirely.
type Options struct {
	Flavor Flavor

	MinMean null.Float
	MaxMean null.Float
	MinDisp null.Float
	MaxDisp null.Float

	NBins     int
	NTopGenes null.Int
}

// DefaultOptions returns the seurat flavor with 20 bins and default bounds.
func DefaultOptions() Options {
	return Options{Flavor: Seurat, NBins: DefaultNBins}
}

func (o Options) validate() error {
	if _, ok := flavorNames[o.Flavor]; !ok {
		return fmt.Errorf("`flavor` needs to be one of %s", strings.Join(FlavorNames(), ", "))
	}

	if o.NBins < 1 {
		return fmt.Errorf("n_bins must be a positive integer, got %d", o.NBins)
	}

	if o.NTopGenes.Valid && o.NTopGenes.Int64 < 1 {
		return fmt.Errorf("n_top_genes must be a positive integer, got %d", o.NTopGenes.Int64)
	}

	return nil
}

func (o Options) anyBoundSet() bool {
	return o.MinMean.Valid || o.MaxMean.Valid || o.MinDisp.Valid || o.MaxDisp.Valid
}

// GeneRecord is the per-gene outcome of HighlyVariableGenes.
type GeneRecord struct {
	Gene            string  `csv:"gene"`
	Means           float64 `csv:"means"`
	Dispersions     float64 `csv:"dispersions"`
	DispersionsNorm float64 `csv:"dispersions_norm"`
	HighlyVariable  bool    `csv:"highly_variable"`
}

// Result summarizes a HighlyVariableGenes call.
type Result struct {
	Genes []GeneRecord

	// Cutoff is the normalized dispersion of the last gene kept when
	// selecting by count; NaN when selecting by bounds.
	Cutoff float64

	NHighlyVariable int
}

// HighlyVariableGenes annotates the variables of ad that are highly variable.
// It expects logarithmized data (see Log1p) and adds the var columns
// highly_variable, means, dispersions and dispersions_norm, plus uns["hvg"].
// X itself is not modified.
func HighlyVariableGenes(ad *anndata.AnnData, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if _, logged := ad.Uns["log1p"]; !logged {
		log.Warnln("highly_variable_genes expects logarithmized data; adata.uns has no log1p entry")
	}

	nObs, nVars := ad.X.Dims()
	if nObs < 2 {
		return nil, fmt.Errorf("At least 2 observations are needed to compute gene dispersions, found %d", nObs)
	}

	if opts.NTopGenes.Valid && opts.anyBoundSet() {
		log.Infoln("If you pass `n_top_genes`, all cutoffs are ignored.")
	}

	minMean := opts.MinMean.ValueOrZero()
	if !opts.MinMean.Valid {
		minMean = DefaultMinMean
	}
	maxMean := opts.MaxMean.ValueOrZero()
	if !opts.MaxMean.Valid {
		maxMean = DefaultMaxMean
	}
	minDisp := opts.MinDisp.ValueOrZero()
	if !opts.MinDisp.Valid {
		minDisp = DefaultMinDisp
	}
	maxDisp := opts.MaxDisp.ValueOrZero()
	if !opts.MaxDisp.Valid {
		maxDisp = DefaultMaxDisp
	}

	means, dispersions := meanDispersion(ad.X, opts.Flavor)

	var norm []float64
	switch opts.Flavor {
	case Seurat:
		norm = seuratNormalize(means, dispersions, opts.NBins)
	case CellRanger:
		var err error
		if norm, err = cellRangerNormalize(means, dispersions); err != nil {
			return nil, err
		}
	}

	res := &Result{Genes: make([]GeneRecord, nVars), Cutoff: math.NaN()}
	selected := make([]bool, nVars)

	if opts.NTopGenes.Valid {
		n := int(opts.NTopGenes.Int64)
		if n > nVars {
			log.Infoln("`n_top_genes` > `adata.n_var`, returning all genes.")
			n = nVars
		}

		res.Cutoff = topCutoff(norm, n)
		log.Debugf("the %d top genes correspond to a normalized dispersion cutoff of %v", n, res.Cutoff)

		for j, v := range norm {
			selected[j] = nanToNum(v) >= res.Cutoff
		}
	} else {
		for j, v := range norm {
			// Similar to Seurat, undefined dispersions compare as 0
			if math.IsNaN(v) {
				v = 0
			}
			selected[j] = means[j] > minMean && means[j] < maxMean && v > minDisp && v < maxDisp
		}
	}

	for j := range selected {
		res.Genes[j] = GeneRecord{
			Gene:            ad.VarNames[j],
			Means:           means[j],
			Dispersions:     dispersions[j],
			DispersionsNorm: norm[j],
			HighlyVariable:  selected[j],
		}
		if selected[j] {
			res.NHighlyVariable++
		}
	}

	if err := annotate(ad, opts.Flavor, means, dispersions, norm, selected); err != nil {
		return nil, err
	}

	log.Infof("Found %d highly variable genes out of %d", res.NHighlyVariable, nVars)

	return res, nil
}

// meanDispersion computes the per-gene mean and dispersion (variance / mean)
// in a single pass over the rows of X. For Seurat the data are exponentiated
// back first, and both quantities are returned on the log scale.
func meanDispersion(X mat.Matrix, flavor Flavor) (means, dispersions []float64) {
	nObs, nVars := X.Dims()
	means = make([]float64, nVars)
	dispersions = make([]float64, nVars)

	genes := make([]*runningvariance.RunningStat, nVars)
	for j := range genes {
		genes[j] = runningvariance.NewRunningStat()
	}

	row := make([]float64, nVars)
	for i := 0; i < nObs; i++ {
		mat.Row(row, i, X)
		for j, v := range row {
			if flavor == Seurat {
				v = math.Expm1(v)
			}
			genes[j].Push(v)
		}
	}

	for j, rs := range genes {
		mean := rs.Mean()
		sd := rs.StandardDeviation()
		variance := sd * sd

		// Set entries equal to zero to a small value
		if mean == 0 {
			mean = 1e-12
		}
		dispersion := variance / mean

		if flavor == Seurat {
			if dispersion == 0 {
				dispersion = math.NaN()
			}
			dispersion = math.Log(dispersion)
			mean = math.Log1p(mean)
		}

		means[j] = mean
		dispersions[j] = dispersion
	}

	return means, dispersions
}

// topCutoff returns the n-th largest defined value of norm, or +Inf if there
// are no defined values to choose from.
func topCutoff(norm []float64, n int) float64 {
	defined := make([]float64, 0, len(norm))
	for _, v := range norm {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}

	if len(defined) == 0 || n < 1 {
		return math.Inf(1)
	}

	if n > len(defined) {
		log.Warnf("Only %d genes have a defined normalized dispersion; selecting all of them", len(defined))
		n = len(defined)
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(defined)))

	return defined[n-1]
}

func nanToNum(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}

	return v
}

func annotate(ad *anndata.AnnData, flavor Flavor, means, dispersions, norm []float64, selected []bool) error {
	if err := ad.Var.SetBool("highly_variable", selected); err != nil {
		return err
	}
	if err := ad.Var.SetFloat("means", means); err != nil {
		return err
	}
	if err := ad.Var.SetFloat("dispersions", dispersions); err != nil {
		return err
	}
	if err := ad.Var.SetFloat("dispersions_norm", norm); err != nil {
		return err
	}

	ad.Uns["hvg"] = map[string]interface{}{"flavor": flavor.String()}

	return nil
}
