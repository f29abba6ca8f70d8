package anndata

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scgenomisc"
	"gonum.org/v1/gonum/mat"
)

// readDelimited parses a dense matrix. If comma is 0, the delimiter is
// sniffed from the head of the file.
func readDelimited(ctx context.Context, o *scgenomisc.Opener, path string, comma rune) (*AnnData, error) {
	rc, err := o.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	if comma == 0 {
		comma = scgenomisc.PeekDelimiter(br)
	}

	r := csv.NewReader(br)
	r.Comma = comma
	r.Comment = '#'

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: file is empty", path)
	} else if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if len(header) < 2 {
		return nil, fmt.Errorf("%s: expected a header with an index column followed by variable names, found %d columns. Is the delimiter %q correct?", path, len(header), comma)
	}

	varNames := append([]string(nil), header[1:]...)
	obsNames := make([]string, 0)
	data := make([]float64, 0)

	for i := 1; ; i++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}

		obsNames = append(obsNames, row[0])
		for j, v := range row[1:] {
			value, err := parseFloat(v)
			if err != nil {
				return nil, fmt.Errorf("%s: data row %d, variable %s: %w", path, i, varNames[j], err)
			}
			data = append(data, value)
		}
	}

	if len(obsNames) == 0 {
		return nil, fmt.Errorf("%s: no observations found", path)
	}

	return New(mat.NewDense(len(obsNames), len(varNames), data), obsNames, varNames)
}

func writeDelimited(ctx context.Context, o *scgenomisc.Opener, ad *AnnData, path string, comma rune) error {
	wc, err := o.Create(ctx, path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(wc)
	w := csv.NewWriter(bw)
	w.Comma = comma

	row := make([]string, ad.NVars()+1)
	copy(row[1:], ad.VarNames)
	if err := w.Write(row); err != nil {
		wc.Close()
		return pfx.Err(err)
	}

	for i := 0; i < ad.NObs(); i++ {
		row[0] = ad.ObsNames[i]
		for j := 0; j < ad.NVars(); j++ {
			row[j+1] = formatFloat(ad.X.At(i, j))
		}
		if err := w.Write(row); err != nil {
			wc.Close()
			return pfx.Err(err)
		}
	}

	return closeWriter(w, bw, wc, path)
}

// closeWriter flushes a csv.Writer stacked on a bufio.Writer and then closes
// the destination, surfacing the first error encountered.
func closeWriter(w *csv.Writer, bw *bufio.Writer, wc io.Closer, path string) error {
	w.Flush()
	if err := w.Error(); err != nil {
		wc.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
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
