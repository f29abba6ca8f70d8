// find-variable-genes marks the highly variable genes of an expression
// matrix. The matrix is logarithmized with log1p before selection, and the
// per-gene statistics are written back as variable annotations.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scgenomisc"
	"github.com/carbocation/scgenomisc/anndata"
	"github.com/carbocation/scgenomisc/compileinfo"
	_ "github.com/carbocation/scgenomisc/compileinfoprint"
	"github.com/carbocation/scgenomisc/plot"
	"github.com/carbocation/scgenomisc/preprocess"
	"github.com/carbocation/scgenomisc/subsetparams"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

type options struct {
	Input        string
	InputFormat  anndata.Format
	Output       string
	OutputFormat anndata.Format
	Plot         string
	Table        string
	Thresholds   subsetparams.Spec
	HVG          preprocess.Options
	Debug        bool
	Version      bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		os.Exit(0)
	} else if err != nil {
		log.Fatalln(err)
	}

	if opts.Version {
		compileinfo.Fprint(os.Stdout)
		return
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(context.Background(), opts); err != nil {
		log.Fatalln(err)
	}
}

func parseArgs(args []string, usageOut io.Writer) (options, error) {
	opts := options{HVG: preprocess.DefaultOptions()}

	fs := flag.NewFlagSet("find-variable-genes", flag.ContinueOnError)
	fs.SetOutput(usageOut)

	var inputFormat, outputFormat, flavor string

	stringVar := func(p *string, short, long, value, usage string) {
		fs.StringVar(p, short, value, usage)
		fs.StringVar(p, long, value, usage)
	}

	formats := strings.Join(anndata.FormatNames(), ", ")

	stringVar(&opts.Input, "i", "input-object-file", "", "Path to the input expression matrix. For mtx, the 10x directory. May be a gs:// path.")
	stringVar(&inputFormat, "f", "input-format", "tsv", fmt.Sprintf("Format of the input: one of %s.", formats))
	stringVar(&opts.Output, "o", "output-object-file", "", "Path for the annotated output. May be a gs:// path.")
	stringVar(&outputFormat, "F", "output-format", "tsv", fmt.Sprintf("Format of the output: one of %s.", formats))
	stringVar(&opts.Plot, "P", "output-plot", "", "(Optional) Path for a .png or .svg plot of normalized dispersion against mean.")
	fs.StringVar(&opts.Table, "output-table", "", "(Optional) Path for a tab-delimited table of the per-gene statistics.")
	fs.StringVar(&flavor, "flavor", preprocess.Seurat.String(), fmt.Sprintf("Method for computing normalized dispersion: one of %s.", strings.Join(preprocess.FlavorNames(), ", ")))

	fs.IntVar(&opts.HVG.NBins, "b", preprocess.DefaultNBins, "Number of bins for binning the mean gene expression.")
	fs.IntVar(&opts.HVG.NBins, "n-bins", preprocess.DefaultNBins, "Number of bins for binning the mean gene expression.")

	nTop := func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not an integer", v)
		}
		opts.HVG.NTopGenes = null.IntFrom(int64(n))
		return nil
	}
	nTopUsage := "(Optional) Number of highly variable genes to keep. Overrides the mean and disp thresholds."
	fs.Func("n", nTopUsage, nTop)
	fs.Func("n-top-genes", nTopUsage, nTop)

	thresholds := subsetparams.AddFlags(fs, subsetparams.Mean.String(), subsetparams.Disp.String())

	fs.BoolVar(&opts.Debug, "debug", false, "Log at debug level.")
	fs.BoolVar(&opts.Version, "version", false, "Print build information and exit.")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.Version {
		return opts, nil
	}

	if fs.NArg() > 0 {
		return opts, fmt.Errorf("Unexpected arguments: %v", fs.Args())
	}

	if opts.Input == "" || opts.Output == "" {
		fs.Usage()
		return opts, fmt.Errorf("Both --input-object-file and --output-object-file are required")
	}

	var err error
	if opts.InputFormat, err = anndata.ParseFormat(inputFormat); err != nil {
		return opts, err
	}
	if opts.OutputFormat, err = anndata.ParseFormat(outputFormat); err != nil {
		return opts, err
	}
	if opts.HVG.Flavor, err = preprocess.ParseFlavor(flavor); err != nil {
		return opts, err
	}
	if opts.Thresholds, err = thresholds.Spec(); err != nil {
		return opts, err
	}

	if opts.Plot != "" {
		if _, err := plot.RendererForPath(opts.Plot); err != nil {
			return opts, err
		}
	}

	return opts, nil
}

func run(ctx context.Context, opts options) error {
	log.Debugf("Options: input=%s (%s) output=%s (%s) flavor=%s n_bins=%d n_top_genes=%v thresholds=%+v plot=%q table=%q",
		opts.Input, opts.InputFormat, opts.Output, opts.OutputFormat, opts.HVG.Flavor, opts.HVG.NBins,
		nullIntString(opts.HVG.NTopGenes), opts.Thresholds, opts.Plot, opts.Table)

	o, err := scgenomisc.NewOpener(ctx, opts.Input, opts.Output, opts.Plot, opts.Table)
	if err != nil {
		return err
	}
	defer o.Close()

	ad, err := anndata.Read(ctx, o, opts.Input, opts.InputFormat)
	if err != nil {
		return err
	}
	log.Infof("Loaded %s", ad)

	bounds := subsetparams.Resolve(opts.Thresholds)
	log.Debugf("Resolved bounds: %s", bounds)

	hvgOpts := opts.HVG
	hvgOpts.MinMean = bounds.MinMean
	hvgOpts.MaxMean = bounds.MaxMean
	hvgOpts.MinDisp = bounds.MinDisp
	hvgOpts.MaxDisp = bounds.MaxDisp

	preprocess.Log1p(ad)

	res, err := preprocess.HighlyVariableGenes(ad, hvgOpts)
	if err != nil {
		return err
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		logNormHistogram(res.Genes)
	}

	if err := anndata.Write(ctx, o, ad, opts.Output, opts.OutputFormat); err != nil {
		return err
	}

	if opts.Plot != "" {
		if err := writePlot(ctx, o, opts.Plot, res.Genes); err != nil {
			return err
		}
	}

	if opts.Table != "" {
		if err := writeTable(ctx, o, opts.Table, res.Genes); err != nil {
			return err
		}
	}

	log.Infoln("Done")

	return nil
}

func writePlot(ctx context.Context, o *scgenomisc.Opener, path string, genes []preprocess.GeneRecord) error {
	rp, err := plot.RendererForPath(path)
	if err != nil {
		return err
	}

	wc, err := o.Create(ctx, path)
	if err != nil {
		return err
	}

	if err := plot.HVG(wc, genes, rp); err != nil {
		wc.Close()
		return pfx.Err(err)
	}

	return wc.Close()
}

func writeTable(ctx context.Context, o *scgenomisc.Opener, path string, genes []preprocess.GeneRecord) error {
	wc, err := o.Create(ctx, path)
	if err != nil {
		return err
	}

	if err := preprocess.WriteTable(wc, genes); err != nil {
		wc.Close()
		return err
	}

	return wc.Close()
}

func logNormHistogram(genes []preprocess.GeneRecord) {
	values := make([]float64, len(genes))
	for i, g := range genes {
		values[i] = g.DispersionsNorm
	}

	var buf bytes.Buffer
	if err := plot.FprintHistogram(&buf, values, 10); err != nil {
		log.Debugln("Could not draw the normalized dispersion histogram:", err)
		return
	}

	log.Debugf("Normalized dispersions:\n%s", buf.String())
}

func nullIntString(n null.Int) string {
	if !n.Valid {
		return "None"
	}

	return strconv.FormatInt(n.Int64, 10)
}
