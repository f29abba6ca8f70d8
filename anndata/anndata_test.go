package anndata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewChecksNames(t *testing.T) {
	X := mat.NewDense(2, 3, nil)

	_, err := New(X, []string{"c1"}, []string{"g1", "g2", "g3"})
	assert.Error(t, err)

	_, err = New(X, []string{"c1", "c2"}, []string{"g1"})
	assert.Error(t, err)

	ad, err := New(X, []string{"c1", "c2"}, []string{"g1", "g2", "g3"})
	require.NoError(t, err)
	assert.Equal(t, 2, ad.NObs())
	assert.Equal(t, 3, ad.NVars())
	assert.Equal(t, 2, ad.Obs.Len())
	assert.Equal(t, 3, ad.Var.Len())
}

func TestVarNamesMakeUnique(t *testing.T) {
	for _, v := range []struct {
		in, out []string
	}{
		{[]string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{[]string{"a", "a", "a"}, []string{"a", "a-1", "a-2"}},
		{[]string{"a", "a", "a-1"}, []string{"a", "a-2", "a-1"}},
	} {
		ad := &AnnData{VarNames: v.in}
		ad.VarNamesMakeUnique()
		assert.Equal(t, v.out, ad.VarNames, "%v", v.in)
	}
}

func TestFrameSet(t *testing.T) {
	f := NewFrame(2)

	require.NoError(t, f.SetFloat("means", []float64{1, 2}))
	require.NoError(t, f.SetBool("highly_variable", []bool{true, false}))
	assert.Error(t, f.SetString("short", []string{"x"}))

	// Replacing keeps the original position
	require.NoError(t, f.SetFloat("means", []float64{3, 4}))
	assert.Equal(t, []string{"means", "highly_variable"}, f.Names())

	means, ok := f.Float("means")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, means)

	_, ok = f.Bool("means")
	assert.False(t, ok)
}

func TestInferColumn(t *testing.T) {
	assert.Equal(t, KindBool, inferColumn("x", []string{"True", "false"}).Kind)
	assert.Equal(t, KindFloat, inferColumn("x", []string{"1.5", "nan", "2"}).Kind)
	assert.Equal(t, KindString, inferColumn("x", []string{"ENSG1", "2"}).Kind)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MTX")
	require.NoError(t, err)
	assert.Equal(t, FormatMTX, f)
	assert.Equal(t, "mtx", f.String())

	_, err = ParseFormat("loom")
	assert.Error(t, err)
}
