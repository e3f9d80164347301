package keyhist

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// A keypoint file is read in two stages. A StringReader splits the raw text
// into the tokens of one line, then ReadSamples turns every token into a
// float64. A file with a bad token is rejected as a whole.

// When Read is called, return an array of strings which are the columns of
// the next line. io.EOF signals the end of the input.
type StringReader interface {
	Read(context.Context) ([]string, error)
	LineNumber() int
}

// Format selects the StringReader used for the input files.
type Format int

const (
	// Whitespace or comma separated values. This is the default.
	FormatRelaxed Format = iota
	// Strict CSV as understood by encoding/csv.
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatRelaxed:
		return "relaxed"
	case FormatCSV:
		return "csv"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func NewStringReader(format Format, input io.Reader) StringReader {
	if format == FormatCSV {
		return NewCsvStringReader(input)
	}
	return NewRelaxedStringReader(input)
}

// NaN and infinities parse as floats but cannot be binned.
var ErrNonFiniteSample = errors.New("sample is not a finite number")

// ParseError is returned when a token cannot be parsed as a float.
type ParseError struct {
	Line  int
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: cannot parse %q as a number: %v", e.Line, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// This implements a StringReader on top of the Golang csv module. The input
// must strictly conform to CSV. Records may have a varying number of fields
// as a keypoint file is just a flat list of values.
type CsvStringReader struct {
	csvReader *csv.Reader

	lineCount int
}

func NewCsvStringReader(input io.Reader) *CsvStringReader {
	csvReader := csv.NewReader(input)
	csvReader.FieldsPerRecord = -1
	csvReader.Comment = '#'
	csvReader.TrimLeadingSpace = true

	return &CsvStringReader{
		csvReader: csvReader,
	}
}

func (r *CsvStringReader) Read(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line, err := r.csvReader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.lineCount = parseErr.Line
		}

		logrus.WithFields(logrus.Fields{
			"tag":     "CsvString",
			"lineNum": r.lineCount,
		}).WithError(err).Debug("unable to read CSV")
		return nil, err
	}

	r.lineCount, _ = r.csvReader.FieldPos(0)

	return line, nil
}

func (r *CsvStringReader) LineNumber() int {
	return r.lineCount
}

// This is a more relaxed reader that can split on spaces or commas. However,
// it does not follow CSV quoting rules. Blank lines and lines starting with
// '#' are skipped.
type RelaxedStringReader struct {
	scanner *bufio.Scanner

	lineCount int
}

// Longest line the relaxed reader accepts. Keypoint dumps can put every value
// on a single line.
const MaxLineSize = 64 * 1024 * 1024

func NewRelaxedStringReader(input io.Reader) *RelaxedStringReader {
	return newRelaxedStringReaderSize(input, MaxLineSize)
}

func newRelaxedStringReaderSize(input io.Reader, maxLineSize int) *RelaxedStringReader {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineSize)), maxLineSize)

	return &RelaxedStringReader{
		scanner: scanner,
	}
}

// Split on either comma or any number of spaces or tabs
var relaxedSplitter = regexp.MustCompile("[ \t]+|,")

func (r *RelaxedStringReader) Read(ctx context.Context) ([]string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				// The failed line was never counted.
				r.lineCount++
				logrus.WithField("tag", "RelaxedString").WithError(err).Error("unable to read line")
				return nil, err
			}
			return nil, io.EOF
		}

		r.lineCount++

		line := strings.TrimSpace(r.scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		// Return only non-empty fields
		return Filter(relaxedSplitter.Split(line, -1), func(value string) bool {
			return len(value) > 0
		}), nil
	}
}

func (r *RelaxedStringReader) LineNumber() int {
	return r.lineCount
}

// Reads every remaining line from the input and flattens the values into a
// single sequence, in file order.
func ReadSamples(ctx context.Context, input StringReader) ([]float64, error) {
	values := make([]float64, 0, 1024)

	for {
		line, err := input.Read(ctx)
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", input.LineNumber(), err)
		}

		for _, token := range line {
			token = strings.TrimSpace(token)
			if len(token) == 0 {
				continue
			}

			value, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, &ParseError{Line: input.LineNumber(), Token: token, Err: err}
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, &ParseError{Line: input.LineNumber(), Token: token, Err: ErrNonFiniteSample}
			}

			values = append(values, value)
		}
	}
}
