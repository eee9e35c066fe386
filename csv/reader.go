// Package csv reads delimited text files into rows for local widget execution.
package csv

import (
	"encoding/csv"
	"errors"
	"io"

	"hermannm.dev/wrap"
)

type Reader struct {
	inner      *csv.Reader
	file       io.ReadSeeker
	currentRow int
}

func NewReader(csvFile io.ReadSeeker) (*Reader, error) {
	delimiter, err := DeduceFieldDelimiter(csvFile, 20, DefaultDelimitersToCheck)
	if err != nil {
		return nil, err
	}

	return &Reader{inner: newInnerReader(csvFile, delimiter), file: csvFile, currentRow: 0}, nil
}

func newInnerReader(csvFile io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(csvFile)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = delimiter != ' '
	return reader
}

func (reader *Reader) Delimiter() rune {
	return reader.inner.Comma
}

func (reader *Reader) ReadRow() (row []string, rowNumber int, done bool, err error) {
	reader.currentRow++

	row, err = reader.inner.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, true, nil
		} else {
			return nil, 0, false, err
		}
	}

	return row, reader.currentRow, false, nil
}

func (reader *Reader) ReadHeaderRow() (row []string, err error) {
	row, rowNumber, done, err := reader.ReadRow()
	if done {
		return nil, errors.New("csv file ended before header row")
	}
	if err != nil {
		return nil, err
	}
	if rowNumber != 1 {
		return nil, errors.New("tried to read header row after reading previous rows")
	}
	return row, nil
}

func (reader *Reader) ResetReadPosition() error {
	if _, err := reader.file.Seek(0, io.SeekStart); err != nil {
		return wrap.Error(err, "failed to seek to start of CSV file")
	}

	reader.currentRow = 0
	reader.inner = newInnerReader(reader.file, reader.inner.Comma)
	return nil
}
