package anndata

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scgenomisc"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Candidate file names inside a 10x directory, in order of preference.
var (
	mtxMatrixNames   = []string{"matrix.mtx.gz", "matrix.mtx"}
	mtxFeatureNames  = []string{"features.tsv.gz", "features.tsv", "genes.tsv.gz", "genes.tsv"}
	mtxBarcodeNames  = []string{"barcodes.tsv.gz", "barcodes.tsv"}
	mtxScannerBuffer = 1024 * 1024
)

const mtxBanner = "%%MatrixMarket matrix coordinate real general"

func readMTX(ctx context.Context, o *scgenomisc.Opener, dir string) (*AnnData, error) {
	names, err := o.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	matrixFile, err := pickFile(dir, names, mtxMatrixNames)
	if err != nil {
		return nil, err
	}
	featureFile, err := pickFile(dir, names, mtxFeatureNames)
	if err != nil {
		return nil, err
	}
	barcodeFile, err := pickFile(dir, names, mtxBarcodeNames)
	if err != nil {
		return nil, err
	}

	features, err := readTSVRows(ctx, o, featureFile)
	if err != nil {
		return nil, err
	}
	barcodes, err := readTSVRows(ctx, o, barcodeFile)
	if err != nil {
		return nil, err
	}

	if len(features) == 0 || len(barcodes) == 0 {
		return nil, fmt.Errorf("%s: found %d features and %d barcodes", dir, len(features), len(barcodes))
	}

	rc, err := o.Open(ctx, matrixFile)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	X, err := readMatrixMarket(rc, len(features), len(barcodes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", matrixFile, err)
	}

	obsNames := make([]string, len(barcodes))
	for i, row := range barcodes {
		obsNames[i] = row[0]
	}

	// Gene symbols become the variable names, as 10x gene IDs are unreadable
	varNames := make([]string, len(features))
	geneIDs := make([]string, len(features))
	featureTypes := make([]string, 0)
	for i, row := range features {
		geneIDs[i] = row[0]
		varNames[i] = row[0]
		if len(row) > 1 {
			varNames[i] = row[1]
		}
		if len(row) > 2 {
			featureTypes = append(featureTypes, row[2])
		}
	}

	ad, err := New(X, obsNames, varNames)
	if err != nil {
		return nil, err
	}
	ad.VarNamesMakeUnique()

	if err := ad.Var.SetString("gene_ids", geneIDs); err != nil {
		return nil, err
	}
	if len(featureTypes) == len(features) {
		if err := ad.Var.SetString("feature_types", featureTypes); err != nil {
			return nil, err
		}
	}

	return ad, nil
}

func pickFile(dir string, present, candidates []string) (string, error) {
	have := make(map[string]struct{}, len(present))
	for _, v := range present {
		have[v] = struct{}{}
	}

	for _, v := range candidates {
		if _, exists := have[v]; exists {
			return scgenomisc.JoinPath(dir, v), nil
		}
	}

	return "", fmt.Errorf("%s: none of %v were found", dir, candidates)
}

func readTSVRows(ctx context.Context, o *scgenomisc.Opener, path string) ([][]string, error) {
	rc, err := o.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return rows, nil
}

// readMatrixMarket parses a coordinate Matrix Market file of nFeatures rows by
// nBarcodes columns and returns it transposed, as observations by variables.
func readMatrixMarket(r io.Reader, nFeatures, nBarcodes int) (*mat.Dense, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, mtxScannerBuffer), mtxScannerBuffer)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, pfx.Err(err)
		}
		return nil, fmt.Errorf("empty Matrix Market file")
	}

	banner := strings.Fields(strings.ToLower(scanner.Text()))
	if len(banner) != 5 || banner[0] != "%%matrixmarket" || banner[1] != "matrix" || banner[2] != "coordinate" {
		return nil, fmt.Errorf("expected a coordinate Matrix Market banner, found %q", scanner.Text())
	}
	field, symmetry := banner[3], banner[4]
	switch field {
	case "real", "integer", "pattern":
	default:
		return nil, fmt.Errorf("Matrix Market field %q is not supported", field)
	}
	if symmetry != "general" {
		return nil, fmt.Errorf("Matrix Market symmetry %q is not supported", symmetry)
	}

	var X *mat.Dense
	var nnz, seen int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)

		// The first non-comment line holds the dimensions
		if X == nil {
			if len(fields) != 3 {
				return nil, fmt.Errorf("expected 'rows cols entries', found %q", line)
			}
			rows, cols, entries, err := atoi3(fields)
			if err != nil {
				return nil, err
			}
			if rows != nFeatures || cols != nBarcodes {
				return nil, fmt.Errorf("matrix is %d x %d but there are %d features and %d barcodes", rows, cols, nFeatures, nBarcodes)
			}
			nnz = entries
			X = mat.NewDense(nBarcodes, nFeatures, nil)
			continue
		}

		if (field == "pattern" && len(fields) != 2) || (field != "pattern" && len(fields) != 3) {
			return nil, fmt.Errorf("malformed entry %q", line)
		}

		feature, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, err
		}
		barcode, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, err
		}
		if feature < 1 || feature > nFeatures || barcode < 1 || barcode > nBarcodes {
			return nil, fmt.Errorf("entry %q is out of bounds", line)
		}

		value := 1.0
		if field != "pattern" {
			if value, err = strconv.ParseFloat(fields[2], 64); err != nil {
				return nil, err
			}
		}

		// Duplicate coordinates are summed
		X.Set(barcode-1, feature-1, X.At(barcode-1, feature-1)+value)
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if X == nil {
		return nil, fmt.Errorf("Matrix Market file has no size line")
	}
	if seen != nnz {
		log.Warnf("Matrix Market header announced %d entries but %d were read", nnz, seen)
	}

	return X, nil
}

func atoi3(fields []string) (a, b, c int, err error) {
	if a, err = strconv.Atoi(fields[0]); err != nil {
		return
	}
	if b, err = strconv.Atoi(fields[1]); err != nil {
		return
	}
	c, err = strconv.Atoi(fields[2])
	return
}

func writeMTX(ctx context.Context, o *scgenomisc.Opener, ad *AnnData, dir string) error {
	if err := writeMatrixMarket(ctx, o, ad, scgenomisc.JoinPath(dir, "matrix.mtx")); err != nil {
		return err
	}

	geneIDs, ok := ad.Var.String("gene_ids")
	if !ok {
		geneIDs = ad.VarNames
	}
	features := make([][]string, ad.NVars())
	for i := range features {
		features[i] = []string{geneIDs[i], ad.VarNames[i]}
	}
	if err := writeTSVRows(ctx, o, scgenomisc.JoinPath(dir, "genes.tsv"), features); err != nil {
		return err
	}

	barcodes := make([][]string, ad.NObs())
	for i := range barcodes {
		barcodes[i] = []string{ad.ObsNames[i]}
	}

	return writeTSVRows(ctx, o, scgenomisc.JoinPath(dir, "barcodes.tsv"), barcodes)
}

func writeMatrixMarket(ctx context.Context, o *scgenomisc.Opener, ad *AnnData, path string) error {
	nnz := 0
	for i := 0; i < ad.NObs(); i++ {
		for j := 0; j < ad.NVars(); j++ {
			if ad.X.At(i, j) != 0 {
				nnz++
			}
		}
	}

	wc, err := o.Create(ctx, path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(wc)

	bw.WriteString(mtxBanner + "\n")
	fmt.Fprintf(bw, "%d %d %d\n", ad.NVars(), ad.NObs(), nnz)
	for i := 0; i < ad.NObs(); i++ {
		for j := 0; j < ad.NVars(); j++ {
			if v := ad.X.At(i, j); v != 0 {
				fmt.Fprintf(bw, "%d %d %s\n", j+1, i+1, formatFloat(v))
			}
		}
	}

	if err := bw.Flush(); err != nil {
		wc.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if err := wc.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

func writeTSVRows(ctx context.Context, o *scgenomisc.Opener, path string, rows [][]string) error {
	wc, err := o.Create(ctx, path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(wc)
	w := csv.NewWriter(bw)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		wc.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return closeWriter(w, bw, wc, path)
}
