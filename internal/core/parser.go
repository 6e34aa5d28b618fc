package core

// parser.go streams trip records out of a CSV file.
//
// The file is opened when the sequence is first pulled and closed when the
// consumer stops: on exhaustion, on the first error, or on an early break.
// A sequence can be ranged over once; a second pass yields ErrSequenceConsumed.

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync/atomic"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser reads trip CSV files.
type Parser struct {
	norm *Normalizer
}

// NewParser returns a Parser that normalizes each row with norm.
func NewParser(norm *Normalizer) *Parser {
	return &Parser{norm: norm}
}

// Records returns a lazy, single-pass sequence over the records in path.
// The sequence stops after yielding the first non-nil error.
func (p *Parser) Records(path string) iter.Seq2[Record, error] {
	var used atomic.Bool
	return func(yield func(Record, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Record{}, ErrSequenceConsumed)
			return
		}

		f, err := os.Open(path)
		if err != nil {
			yield(Record{}, fmt.Errorf("%w: open %s: %w", ErrInput, path, err))
			return
		}
		defer f.Close()

		p.scan(f, yield)
	}
}

// Read returns a single-pass sequence over records from r.
func (p *Parser) Read(r io.Reader) iter.Seq2[Record, error] {
	var used atomic.Bool
	return func(yield func(Record, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Record{}, ErrSequenceConsumed)
			return
		}
		p.scan(r, yield)
	}
}

// ReadAll parses every record in path into memory.
func (p *Parser) ReadAll(path string) ([]Record, error) {
	var records []Record
	for rec, err := range p.Records(path) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *Parser) scan(r io.Reader, yield func(Record, error) bool) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == string(utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = false
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			yield(Record{}, fmt.Errorf("%w: file has no header row", ErrParse))
			return
		}
		yield(Record{}, csvError(err))
		return
	}

	cols := p.norm.Columns
	idx := MakeHeaderIndex(header)
	if err := cols.Validate(idx); err != nil {
		yield(Record{}, err)
		return
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(Record{}, csvError(err))
			return
		}
		if isBlankRow(row) {
			continue
		}

		line, _ := cr.FieldPos(0)
		rec, err := p.norm.NewRecord(cols.Row(idx, row))
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = line
			}
			yield(Record{}, err)
			return
		}
		if !yield(rec, nil) {
			return
		}
	}
}

// csvError converts an encoding/csv failure into a ParseError. Read errors
// from the underlying file are input errors rather than parse errors.
func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("%w: read: %w", ErrInput, err)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
