package anndata

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/scgenomisc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReadMTXDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "matrix.mtx"), strings.Join([]string{
		"%%MatrixMarket matrix coordinate integer general",
		"% written by cellranger",
		"3 2 4",
		"1 1 5",
		"3 1 1",
		"2 2 7",
		"3 2 2",
		"",
	}, "\n"))
	writeFile(t, filepath.Join(dir, "features.tsv"), "ENSG01\tCD3E\tGene Expression\nENSG02\tMT-CO1\tGene Expression\nENSG03\tCD3E\tGene Expression\n")
	writeFile(t, filepath.Join(dir, "barcodes.tsv"), "AAAC-1\nAAAG-1\n")

	ad, err := Read(context.Background(), &scgenomisc.Opener{}, dir, FormatMTX)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAAC-1", "AAAG-1"}, ad.ObsNames)
	assert.Equal(t, []string{"CD3E", "MT-CO1", "CD3E-1"}, ad.VarNames)
	assert.True(t, mat.Equal(mat.NewDense(2, 3, []float64{5, 0, 1, 0, 7, 2}), ad.X))

	ids, ok := ad.Var.String("gene_ids")
	require.True(t, ok)
	assert.Equal(t, []string{"ENSG01", "ENSG02", "ENSG03"}, ids)

	types, ok := ad.Var.String("feature_types")
	require.True(t, ok)
	assert.Equal(t, "Gene Expression", types[0])
}

func TestMTXRoundTrip(t *testing.T) {
	ctx := context.Background()
	o := &scgenomisc.Opener{}

	X := mat.NewDense(3, 2, []float64{0, 1.5, 2, 0, 0, 0})
	ad, err := New(X, []string{"b1", "b2", "b3"}, []string{"g1", "g2"})
	require.NoError(t, err)
	require.NoError(t, ad.Var.SetBool("highly_variable", []bool{false, true}))

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(ctx, o, ad, dir, FormatMTX))

	back, err := Read(ctx, o, dir, FormatMTX)
	require.NoError(t, err)
	assert.True(t, mat.Equal(X, back.X))
	assert.Equal(t, ad.ObsNames, back.ObsNames)
	assert.Equal(t, ad.VarNames, back.VarNames)

	hv, ok := back.Var.Bool("highly_variable")
	require.True(t, ok)
	assert.Equal(t, []bool{false, true}, hv)
}

func TestReadMatrixMarketErrors(t *testing.T) {
	for _, v := range []string{
		"",
		"%%MatrixMarket matrix array real general\n2 2\n",
		"%%MatrixMarket matrix coordinate complex general\n1 1 1\n1 1 1 0\n",
		"%%MatrixMarket matrix coordinate real symmetric\n1 1 1\n1 1 1\n",
		"%%MatrixMarket matrix coordinate real general\n2 2 1\n1 1 1\n",
		"%%MatrixMarket matrix coordinate real general\n1 1 1\n2 1 1\n",
	} {
		_, err := readMatrixMarket(strings.NewReader(v), 1, 1)
		assert.Error(t, err, "%q", v)
	}
}

func TestReadMatrixMarketPattern(t *testing.T) {
	X, err := readMatrixMarket(strings.NewReader("%%MatrixMarket matrix coordinate pattern general\n2 1 1\n2 1\n"), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, X.At(0, 1))
}
