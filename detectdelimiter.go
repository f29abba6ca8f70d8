package scgenomisc

import (
	"bufio"
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// delimiterSampleBytes is how much of a stream is inspected when sniffing its
// delimiter.
const delimiterSampleBytes = 64 * 1024

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// PeekDelimiter sniffs the delimiter from the head of br without consuming
// anything, so the caller can keep reading from the start of the stream.
func PeekDelimiter(br *bufio.Reader) rune {
	sample, _ := br.Peek(delimiterSampleBytes)

	// Only hand complete lines to the detector
	if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
		sample = sample[:i+1]
	}

	return DetermineDelimiter(bytes.NewReader(sample))
}
