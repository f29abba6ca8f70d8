package anndata

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scgenomisc"
)

// sidecars are the files holding the annotations of an AnnData next to its
// matrix.
type sidecars struct {
	Obs string
	Var string
	Uns string
}

// delimitedSidecars places the annotations next to a matrix file:
// out.tsv.gz => out.obs.tsv, out.var.tsv, out.uns.json
func delimitedSidecars(p string) sidecars {
	stem := strings.TrimSuffix(p, ".gz")
	stem = strings.TrimSuffix(stem, path.Ext(stem))

	return sidecars{
		Obs: stem + ".obs.tsv",
		Var: stem + ".var.tsv",
		Uns: stem + ".uns.json",
	}
}

// directorySidecars places the annotations inside a matrix directory.
func directorySidecars(dir string) sidecars {
	return sidecars{
		Obs: scgenomisc.JoinPath(dir, "obs.tsv"),
		Var: scgenomisc.JoinPath(dir, "var.tsv"),
		Uns: scgenomisc.JoinPath(dir, "uns.json"),
	}
}

func readSidecars(ctx context.Context, o *scgenomisc.Opener, ad *AnnData, sc sidecars) error {
	if err := readFrame(ctx, o, sc.Obs, ad.ObsNames, ad.Obs); err != nil {
		return err
	}

	if err := readFrame(ctx, o, sc.Var, ad.VarNames, ad.Var); err != nil {
		return err
	}

	return readUns(ctx, o, sc.Uns, ad.Uns)
}

func writeSidecars(ctx context.Context, o *scgenomisc.Opener, ad *AnnData, sc sidecars) error {
	if err := writeFrame(ctx, o, sc.Obs, ad.ObsNames, ad.Obs); err != nil {
		return err
	}

	if err := writeFrame(ctx, o, sc.Var, ad.VarNames, ad.Var); err != nil {
		return err
	}

	return writeUns(ctx, o, sc.Uns, ad.Uns)
}

// readFrame loads annotation columns from p into f. A missing file is not an
// error. Rows must list the same names, in the same order, as names.
func readFrame(ctx context.Context, o *scgenomisc.Opener, p string, names []string, f *Frame) error {
	exists, err := o.Exists(ctx, p)
	if err != nil || !exists {
		return err
	}

	rc, err := o.Open(ctx, p)
	if err != nil {
		return err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = '\t'

	entries, err := r.ReadAll()
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", p, err))
	}
	if len(entries) == 0 {
		return nil
	}

	header := entries[0]
	rows := entries[1:]
	if len(rows) != len(names) {
		return fmt.Errorf("%s: has %d rows but the matrix has %d names", p, len(rows), len(names))
	}

	for i, row := range rows {
		if row[0] != names[i] {
			return fmt.Errorf("%s: row %d is named %q but the matrix calls it %q", p, i+1, row[0], names[i])
		}
	}

	for col := 1; col < len(header); col++ {
		raw := make([]string, len(rows))
		for i, row := range rows {
			raw[i] = row[col]
		}

		if err := f.Set(inferColumn(header[col], raw)); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	return nil
}

func writeFrame(ctx context.Context, o *scgenomisc.Opener, p string, names []string, f *Frame) error {
	wc, err := o.Create(ctx, p)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(wc)
	w := csv.NewWriter(bw)
	w.Comma = '\t'

	// The index label keeps the header non-empty when there are no columns
	colNames := f.Names()
	row := make([]string, len(colNames)+1)
	row[0] = "index"
	copy(row[1:], colNames)
	if err := w.Write(row); err != nil {
		wc.Close()
		return pfx.Err(err)
	}

	for i, name := range names {
		row[0] = name
		for j, colName := range colNames {
			row[j+1] = f.Column(colName).Format(i)
		}
		if err := w.Write(row); err != nil {
			wc.Close()
			return pfx.Err(err)
		}
	}

	return closeWriter(w, bw, wc, p)
}

func readUns(ctx context.Context, o *scgenomisc.Opener, p string, uns map[string]interface{}) error {
	exists, err := o.Exists(ctx, p)
	if err != nil || !exists {
		return err
	}

	rc, err := o.Open(ctx, p)
	if err != nil {
		return err
	}
	defer rc.Close()

	loaded := make(map[string]interface{})
	if err := json.NewDecoder(rc).Decode(&loaded); err != nil && err != io.EOF {
		return pfx.Err(fmt.Errorf("%s: %w", p, err))
	}

	for k, v := range loaded {
		uns[k] = v
	}

	return nil
}

func writeUns(ctx context.Context, o *scgenomisc.Opener, p string, uns map[string]interface{}) error {
	wc, err := o.Create(ctx, p)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(wc)
	enc.SetIndent("", "  ")
	if err := enc.Encode(uns); err != nil {
		wc.Close()
		return pfx.Err(fmt.Errorf("%s: %w", p, err))
	}

	if err := wc.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", p, err))
	}

	return nil
}
