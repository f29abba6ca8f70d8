package preprocess

import (
	"encoding/csv"
	"io"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// WriteTable writes one tab-delimited row per gene with its mean, dispersion,
// normalized dispersion and selection flag.
func WriteTable(w io.Writer, genes []GeneRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := gocsv.MarshalCSV(genes, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return pfx.Err(err)
	}

	cw.Flush()

	return cw.Error()
}

// ReadTable parses the output of WriteTable.
func ReadTable(r io.Reader) ([]GeneRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'

	genes := []GeneRecord{}
	if err := gocsv.UnmarshalCSV(cr, &genes); err != nil {
		return nil, pfx.Err(err)
	}

	return genes, nil
}
