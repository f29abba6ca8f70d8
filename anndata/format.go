package anndata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/carbocation/scgenomisc"
	log "github.com/sirupsen/logrus"
)

// Format selects how an AnnData is laid out on disk.
type Format int

const (
	FormatInvalid Format = iota

	// FormatTSV is a dense tab-delimited matrix with observations as rows, a
	// header of variable names, and observation names in the first column.
	FormatTSV

	// FormatCSV is FormatTSV with commas.
	FormatCSV

	// FormatText is a dense delimited matrix whose delimiter is sniffed on
	// read. It is written tab-delimited.
	FormatText

	// FormatMTX is a 10x Genomics style directory holding matrix.mtx,
	// genes.tsv (or features.tsv) and barcodes.tsv, each optionally gzipped.
	FormatMTX
)

var formatNames = map[string]Format{
	"tsv":  FormatTSV,
	"csv":  FormatCSV,
	"text": FormatText,
	"mtx":  FormatMTX,
}

// FormatNames lists the accepted format names.
func FormatNames() []string {
	out := make([]string, 0, len(formatNames))
	for k := range formatNames {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// ParseFormat maps a format name onto a Format.
func ParseFormat(name string) (Format, error) {
	f, exists := formatNames[strings.ToLower(name)]
	if !exists {
		return FormatInvalid, fmt.Errorf("Format %q is not recognized. Valid formats include: %s", name, strings.Join(FormatNames(), ", "))
	}

	return f, nil
}

func (f Format) String() string {
	for k, v := range formatNames {
		if v == f {
			return k
		}
	}

	return "invalid"
}

// Read loads an AnnData from path, including any annotation sidecars that
// sit next to it.
func Read(ctx context.Context, o *scgenomisc.Opener, path string, format Format) (*AnnData, error) {
	var ad *AnnData
	var sc sidecars
	var err error

	switch format {
	case FormatTSV:
		ad, err = readDelimited(ctx, o, path, '\t')
		sc = delimitedSidecars(path)
	case FormatCSV:
		ad, err = readDelimited(ctx, o, path, ',')
		sc = delimitedSidecars(path)
	case FormatText:
		ad, err = readDelimited(ctx, o, path, 0)
		sc = delimitedSidecars(path)
	case FormatMTX:
		ad, err = readMTX(ctx, o, path)
		sc = directorySidecars(path)
	default:
		return nil, fmt.Errorf("Cannot read format %v", format)
	}
	if err != nil {
		return nil, err
	}

	if err := readSidecars(ctx, o, ad, sc); err != nil {
		return nil, err
	}

	log.Debugf("Read %s from %s (%s)", ad, path, format)

	return ad, nil
}

// Write stores ad at path along with its annotation sidecars.
func Write(ctx context.Context, o *scgenomisc.Opener, ad *AnnData, path string, format Format) error {
	var sc sidecars
	var err error

	switch format {
	case FormatTSV, FormatText:
		err = writeDelimited(ctx, o, ad, path, '\t')
		sc = delimitedSidecars(path)
	case FormatCSV:
		err = writeDelimited(ctx, o, ad, path, ',')
		sc = delimitedSidecars(path)
	case FormatMTX:
		err = writeMTX(ctx, o, ad, path)
		sc = directorySidecars(path)
	default:
		return fmt.Errorf("Cannot write format %v", format)
	}
	if err != nil {
		return err
	}

	if err := writeSidecars(ctx, o, ad, sc); err != nil {
		return err
	}

	log.Debugf("Wrote %s to %s (%s)", ad, path, format)

	return nil
}
