// Package export streams top-level elements out of a health data export
// document. The export is a single XML file that can run to many gigabytes,
// so the scanner walks the token stream forward-only and discards each
// element's subtree as soon as it has been handed to the caller; peak memory
// stays proportional to one element, not to document size.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Top-level tags the pipeline cares about. ActivitySummary and Correlation
// are recognized so they can be counted and discarded downstream.
const (
	TagRecord          = "Record"
	TagWorkout         = "Workout"
	TagActivitySummary = "ActivitySummary"
	TagCorrelation     = "Correlation"
)

// Element is one export element: a tag plus its string attributes.
// An Element is only valid until the next call to Scanner.Next.
type Element struct {
	Tag  string
	Attr map[string]string

	// RouteRef holds the path attribute of a nested WorkoutRoute file
	// reference when the element is a Workout that carries one. The path
	// is relative to the export's base directory.
	RouteRef string
}

// Scanner yields export elements in document order. Usage follows the
// Next/Element/Err iterator pattern:
//
//	for sc.Next() {
//	    el := sc.Element()
//	    ...
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	dec    *xml.Decoder
	closer io.Closer
	cur    *Element
	err    error
}

// NewScanner reads elements from an already-open document stream.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{dec: xml.NewDecoder(r)}
}

// Open reads elements from the export file at path. Failure to open is the
// scanner's only up-front error; the caller should treat it as fatal.
func Open(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	sc := NewScanner(f)
	sc.closer = f
	return sc, nil
}

// Next advances to the next element of interest and reports whether one is
// available. It returns false at end of document or on a terminal decode
// error; check Err to distinguish the two.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = err
			return false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case TagRecord, TagWorkout:
			el, err := s.consume(start)
			if err != nil {
				s.err = err
				return false
			}
			s.cur = el
			return true
		case TagActivitySummary, TagCorrelation:
			// Yielded without consuming the subtree: a Correlation wraps
			// Record children, and those still belong in the output.
			s.cur = elementFromStart(start)
			return true
		}
		// Anything else (the document root, ExportDate, Me, metadata
		// nested under an unsupported wrapper) is walked through.
	}
}

// Element returns the element produced by the last successful Next.
func (s *Scanner) Element() *Element { return s.cur }

// Err returns the first terminal error hit while scanning, if any.
func (s *Scanner) Err() error { return s.err }

// Close releases the underlying file when the scanner owns one.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// consume builds an Element from start and discards its subtree, keeping
// only a Workout's route file reference if one appears.
func (s *Scanner) consume(start xml.StartElement) (*Element, error) {
	el := elementFromStart(start)
	depth := 1
	for depth > 0 {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read %s subtree: %w", el.Tag, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if el.Tag == TagWorkout && t.Name.Local == "FileReference" {
				for _, a := range t.Attr {
					if a.Name.Local == "path" {
						el.RouteRef = a.Value
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return el, nil
}

func elementFromStart(start xml.StartElement) *Element {
	attr := make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		attr[a.Name.Local] = a.Value
	}
	return &Element{Tag: start.Name.Local, Attr: attr}
}
