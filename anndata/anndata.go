// Package anndata holds an annotated observation-by-variable matrix and knows
// how to move it to and from files on disk or in Google Storage.
package anndata

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// AnnData is a dense matrix of observations (cells, rows) by variables (genes,
// columns), with per-observation and per-variable annotations and a free-form
// unstructured section.
type AnnData struct {
	X        *mat.Dense
	ObsNames []string
	VarNames []string
	Obs      *Frame
	Var      *Frame
	Uns      map[string]interface{}
}

// New wraps X with the given names. It is an error for the names not to
// match the dimensions of X.
func New(X *mat.Dense, obsNames, varNames []string) (*AnnData, error) {
	r, c := X.Dims()
	if len(obsNames) != r {
		return nil, fmt.Errorf("Matrix has %d observations but %d observation names were given", r, len(obsNames))
	}
	if len(varNames) != c {
		return nil, fmt.Errorf("Matrix has %d variables but %d variable names were given", c, len(varNames))
	}

	return &AnnData{
		X:        X,
		ObsNames: obsNames,
		VarNames: varNames,
		Obs:      NewFrame(r),
		Var:      NewFrame(c),
		Uns:      make(map[string]interface{}),
	}, nil
}

// NObs is the number of observations.
func (ad *AnnData) NObs() int {
	r, _ := ad.X.Dims()
	return r
}

// NVars is the number of variables.
func (ad *AnnData) NVars() int {
	_, c := ad.X.Dims()
	return c
}

func (ad *AnnData) String() string {
	return fmt.Sprintf("AnnData object with n_obs × n_vars = %d × %d; obs: %v; var: %v", ad.NObs(), ad.NVars(), ad.Obs.Names(), ad.Var.Names())
}

// VarNamesMakeUnique appends -1, -2, ... to repeated variable names, leaving
// the first occurrence untouched.
func (ad *AnnData) VarNamesMakeUnique() {
	ad.VarNames = makeUnique(ad.VarNames)
}

// ObsNamesMakeUnique is VarNamesMakeUnique for observation names.
func (ad *AnnData) ObsNamesMakeUnique() {
	ad.ObsNames = makeUnique(ad.ObsNames)
}

func makeUnique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	for _, v := range names {
		seen[v] = struct{}{}
	}

	counts := make(map[string]int)
	first := make(map[string]bool)
	out := make([]string, len(names))
	for i, v := range names {
		if !first[v] {
			first[v] = true
			out[i] = v
			continue
		}

		// Skip suffixes that would collide with a name already present
		for {
			counts[v]++
			candidate := v + "-" + strconv.Itoa(counts[v])
			if _, taken := seen[candidate]; taken {
				continue
			}
			seen[candidate] = struct{}{}
			out[i] = candidate
			break
		}
	}

	return out
}
