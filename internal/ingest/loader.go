// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
)

// maxLineBytes bounds one flat-file line; citation and reference
// sequences for heavily cited documents run long.
const maxLineBytes = 4 * 1024 * 1024

// parseFunc turns the tab-separated fields after the key into attribute
// column values.
type parseFunc func(lineNo int64, fields []string) ([]any, error)

// fileSource streams one flat file as bulk rows. Lines are tab
// delimited: the key first, then the attribute's value fields. Sequence
// files carry all elements for a key on one pre-aggregated line.
type fileSource struct {
	f       *os.File
	sc      *bufio.Scanner
	parse   parseFunc
	maxRows int
	lineNo  int64
}

// openSource builds the loader for one attribute family. maxRows <= 0
// means no cap.
func openSource(attr schema.Attribute, path string, vectorLen, maxRows int) (*fileSource, error) {
	var parse parseFunc
	switch attr.Family {
	case schema.FamilyCanonical:
		parse = parseCanonical
	case schema.FamilyFlag:
		parse = parseFlag
	case schema.FamilySequence:
		parse = parseSequence
	case schema.FamilyScalarGroup:
		parse = scalarGroupParser(attr)
	case schema.FamilyVector:
		parse = vectorParser(vectorLen)
	default:
		return nil, fmt.Errorf("attribute %s has no loader family", attr.Name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &fileSource{f: f, sc: sc, parse: parse, maxRows: maxRows}, nil
}

func (s *fileSource) Close() error { return s.f.Close() }

// Next implements store.RowSource. Blank lines are skipped.
func (s *fileSource) Next() (store.Row, bool, error) {
	for {
		if s.maxRows > 0 && s.lineNo >= int64(s.maxRows) {
			return store.Row{}, true, nil
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil && err != io.EOF {
				return store.Row{}, false, err
			}
			return store.Row{}, true, nil
		}
		line := strings.TrimRight(s.sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.lineNo++
		fields := strings.Split(line, "\t")
		values, err := s.parse(s.lineNo, fields[1:])
		if err != nil {
			return store.Row{}, false, fmt.Errorf("line %d key %q: %w", s.lineNo, fields[0], err)
		}
		return store.Row{Key: fields[0], Values: values}, false, nil
	}
}

// parseCanonical reads the surrogate id from the second field when
// present; a bare key list gets serial ids in file order.
func parseCanonical(lineNo int64, fields []string) ([]any, error) {
	if len(fields) == 0 || fields[0] == "" {
		return []any{lineNo}, nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad surrogate id %q: %w", fields[0], err)
	}
	return []any{id}, nil
}

// parseFlag: presence of the key in the file means true.
func parseFlag(_ int64, _ []string) ([]any, error) {
	return []any{1}, nil
}

// parseSequence encodes the remaining fields as a JSON array literal,
// preserving order.
func parseSequence(_ int64, fields []string) ([]any, error) {
	elems := fields
	if len(elems) == 1 && elems[0] == "" {
		elems = []string{}
	}
	data, err := json.Marshal(elems)
	if err != nil {
		return nil, err
	}
	return []any{string(data)}, nil
}

func scalarGroupParser(attr schema.Attribute) parseFunc {
	cols := attr.Columns
	return func(_ int64, fields []string) ([]any, error) {
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("want %d scalar fields, got %d", len(cols), len(fields))
		}
		values := make([]any, len(cols))
		for i, c := range cols {
			switch c.Kind {
			case schema.KindFloat:
				v, err := strconv.ParseFloat(fields[i], 64)
				if err != nil {
					return nil, fmt.Errorf("bad %s %q: %w", c.Name, fields[i], err)
				}
				values[i] = v
			default:
				v, err := strconv.ParseInt(fields[i], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("bad %s %q: %w", c.Name, fields[i], err)
				}
				values[i] = v
			}
		}
		return values, nil
	}
}

func vectorParser(vectorLen int) parseFunc {
	return func(_ int64, fields []string) ([]any, error) {
		if len(fields) != vectorLen {
			return nil, fmt.Errorf("want %d vector buckets, got %d", vectorLen, len(fields))
		}
		buckets := make([]int64, vectorLen)
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad bucket %d value %q: %w", i, f, err)
			}
			buckets[i] = v
		}
		data, err := json.Marshal(buckets)
		if err != nil {
			return nil, err
		}
		return []any{string(data)}, nil
	}
}
