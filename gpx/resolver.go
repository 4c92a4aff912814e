// Package gpx resolves a workout's route reference to the starting
// coordinate of its GPX side file. Resolution is best-effort: a missing
// reference, a missing or unparseable file, or a file without track points
// all yield an absent coordinate, never an error.
package gpx

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const gpxNamespace = "http://www.topografix.com/GPX/1/1"

// Resolver locates route side files relative to the export's base directory.
// Route references are written with a leading path separator that must be
// stripped before joining.
type Resolver struct {
	baseDir string
}

// NewResolver returns a resolver rooted at the export's base directory.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{baseDir: baseDir}
}

// StartPoint returns the coordinate of the first track point in the
// referenced route file, or nil coordinates when it cannot be resolved.
func (r *Resolver) StartPoint(routeRef string) (lat, lon *float64) {
	if routeRef == "" {
		return nil, nil
	}
	path := filepath.Join(r.baseDir, strings.TrimPrefix(routeRef, "/"))
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, nil
	}

	pt := firstTrackPoint(doc)
	if pt == nil {
		return nil, nil
	}
	lat = parseCoord(pt.SelectAttrValue("lat", ""))
	lon = parseCoord(pt.SelectAttrValue("lon", ""))
	if lat == nil || lon == nil {
		return nil, nil
	}
	return lat, lon
}

// firstTrackPoint tries the namespace-prefixed path first, then an explicit
// GPX-namespace match, then a bare tag, returning the first hit. Route files
// in the wild both declare the GPX namespace and omit it.
func firstTrackPoint(doc *etree.Document) *etree.Element {
	if el := doc.FindElement("//gpx:trkpt"); el != nil {
		return el
	}
	if el := findByNamespaceURI(&doc.Element, gpxNamespace, "trkpt"); el != nil {
		return el
	}
	return doc.FindElement("//trkpt")
}

func findByNamespaceURI(root *etree.Element, uri, tag string) *etree.Element {
	for _, child := range root.ChildElements() {
		if child.Tag == tag && child.NamespaceURI() == uri {
			return child
		}
		if found := findByNamespaceURI(child, uri, tag); found != nil {
			return found
		}
	}
	return nil
}

func parseCoord(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
