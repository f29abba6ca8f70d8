package main

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/scgenomisc"
	"github.com/carbocation/scgenomisc/anndata"
	"github.com/carbocation/scgenomisc/preprocess"
	"github.com/carbocation/scgenomisc/subsetparams"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counts = "\tg0\tg1\tg2\tg3\tg4\n" +
	"c1\t1\t0\t3\t2\t5\n" +
	"c2\t2\t4\t0\t1\t5\n" +
	"c3\t0\t1\t5\t2\t10\n"

func writeCounts(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "counts.tsv")
	require.NoError(t, os.WriteFile(p, []byte(counts), 0644))
	return p
}

func mustParse(t *testing.T, args ...string) options {
	t.Helper()
	opts, err := parseArgs(args, io.Discard)
	require.NoError(t, err)
	return opts
}

func TestParseArgsDefaults(t *testing.T) {
	opts := mustParse(t, "-i", "in.tsv", "-o", "out.tsv")

	assert.Equal(t, "in.tsv", opts.Input)
	assert.Equal(t, anndata.FormatTSV, opts.InputFormat)
	assert.Equal(t, anndata.FormatTSV, opts.OutputFormat)
	assert.Equal(t, preprocess.Seurat, opts.HVG.Flavor)
	assert.Equal(t, 20, opts.HVG.NBins)
	assert.False(t, opts.HVG.NTopGenes.Valid)
	assert.Empty(t, opts.Thresholds)
}

func TestParseArgsLongNames(t *testing.T) {
	opts := mustParse(t,
		"--input-object-file", "in.csv",
		"--input-format", "csv",
		"--output-object-file", "out",
		"--output-format", "mtx",
		"--flavor", "cell_ranger",
		"--n-bins", "10",
		"--n-top-genes", "100",
		"--parameter-names", "mean,disp",
		"--low-thresholds", "0.0125,0.5",
		"--high-thresholds", "3,inf",
		"--output-plot", "hvg.svg",
	)

	assert.Equal(t, anndata.FormatCSV, opts.InputFormat)
	assert.Equal(t, anndata.FormatMTX, opts.OutputFormat)
	assert.Equal(t, preprocess.CellRanger, opts.HVG.Flavor)
	assert.Equal(t, 10, opts.HVG.NBins)
	assert.Equal(t, int64(100), opts.HVG.NTopGenes.Int64)
	assert.Equal(t, subsetparams.Spec{
		{Name: "mean", Low: 0.0125, High: 3},
		{Name: "disp", Low: 0.5, High: math.Inf(1)},
	}, opts.Thresholds)
}

func TestParseArgsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-o", "out.tsv"},
		{"-i", "in.tsv"},
		{"-i", "in.tsv", "-o", "out.tsv", "--flavor", "seurat_v3"},
		{"-i", "in.h5ad", "-f", "h5ad", "-o", "out.tsv"},
		{"-i", "in.tsv", "-o", "out.tsv", "-n", "ten"},
		{"-i", "in.tsv", "-o", "out.tsv", "-p", "mean,disp", "-l", "0.1"},
		{"-i", "in.tsv", "-o", "out.tsv", "-P", "plot.pdf"},
		{"-i", "in.tsv", "-o", "out.tsv", "extra"},
	} {
		_, err := parseArgs(args, io.Discard)
		assert.Error(t, err, "%v", args)
	}
}

func TestParseArgsVersion(t *testing.T) {
	opts := mustParse(t, "--version")
	assert.True(t, opts.Version)
}

func TestRunSeurat(t *testing.T) {
	ctx := context.Background()
	in := writeCounts(t)
	out := filepath.Join(t.TempDir(), "hvg.tsv")

	opts := mustParse(t, "-i", in, "-o", out, "--n-bins", "10")
	require.NoError(t, run(ctx, opts))

	ad, err := anndata.Read(ctx, &scgenomisc.Opener{}, out, anndata.FormatTSV)
	require.NoError(t, err)
	assert.Equal(t, 3, ad.NObs())
	assert.Equal(t, 5, ad.NVars())
	assert.InDelta(t, math.Log1p(10), ad.X.At(2, 4), 1e-9)

	hv, ok := ad.Var.Bool("highly_variable")
	require.True(t, ok)
	assert.Len(t, hv, 5)

	for _, name := range []string{"means", "dispersions", "dispersions_norm"} {
		values, ok := ad.Var.Float(name)
		require.True(t, ok, name)
		assert.Len(t, values, 5)
	}

	assert.Equal(t, map[string]interface{}{"flavor": "seurat"}, ad.Uns["hvg"])
	assert.Contains(t, ad.Uns, "log1p")
}

func TestRunTopGenes(t *testing.T) {
	ctx := context.Background()
	in := writeCounts(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "hvg.tsv")

	// The bounds exclude everything, but n_top_genes takes precedence
	opts := mustParse(t, "-i", in, "-o", out, "-n", "2", "-p", "mean", "-l", "100", "-j", "200")
	require.NoError(t, run(ctx, opts))

	ad, err := anndata.Read(ctx, &scgenomisc.Opener{}, out, anndata.FormatTSV)
	require.NoError(t, err)

	hv, ok := ad.Var.Bool("highly_variable")
	require.True(t, ok)

	n := 0
	for _, v := range hv {
		if v {
			n++
		}
	}
	assert.True(t, n >= 2, "selected %d", n)
}

func TestRunUnknownParameterWarns(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	in := writeCounts(t)
	out := filepath.Join(t.TempDir(), "hvg.tsv")

	opts := mustParse(t, "-i", in, "-o", out, "-p", "variance", "-l", "0", "-j", "1")
	require.NoError(t, run(context.Background(), opts))

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == `Unsupported parameter name "variance", omitted` {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.Equal(t, "Done", hook.LastEntry().Message)
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "hvg.tsv")

	opts := mustParse(t, "-i", filepath.Join(dir, "nope.tsv"), "-o", out)
	assert.Error(t, run(context.Background(), opts))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRunMTXWithPlotAndTable(t *testing.T) {
	ctx := context.Background()
	in := writeCounts(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "hvg_mtx")
	plotPath := filepath.Join(dir, "hvg.png")
	tablePath := filepath.Join(dir, "hvg_genes.tsv")

	opts := mustParse(t, "-i", in, "-o", out, "-F", "mtx", "-b", "10", "-P", plotPath, "--output-table", tablePath)
	require.NoError(t, run(ctx, opts))

	ad, err := anndata.Read(ctx, &scgenomisc.Opener{}, out, anndata.FormatMTX)
	require.NoError(t, err)
	assert.Equal(t, 3, ad.NObs())
	assert.Equal(t, []string{"g0", "g1", "g2", "g3", "g4"}, ad.VarNames)

	png, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	require.True(t, len(png) > 4)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	f, err := os.Open(tablePath)
	require.NoError(t, err)
	defer f.Close()
	genes, err := preprocess.ReadTable(f)
	require.NoError(t, err)
	require.Len(t, genes, 5)
	assert.Equal(t, "g0", genes[0].Gene)
}
