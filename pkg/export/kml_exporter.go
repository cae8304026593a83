package export

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/twpayne/go-kml"

	"github.com/roads-authority/roadworks-api/pkg/geo"
)

// Line styles referenced by KMLFeature.Style.
const (
	KMLStyleClosure     = "closure"
	KMLStyleDetour      = "detour"
	KMLStyleRecommended = "recommended"
	KMLStyleSite        = "site"
)

// KMLFeature is one placemark: a point when Line is empty, otherwise a line string.
type KMLFeature struct {
	Name        string
	Description string
	Style       string
	Point       *geo.Coordinate
	Line        []geo.Coordinate
}

// KMLDocument groups features under a named document.
type KMLDocument struct {
	Name        string
	Description string
	Features    []KMLFeature
}

// KMLExporter renders closures and detours for GIS tools and Google Earth.
type KMLExporter struct{}

// NewKMLExporter constructs a KML exporter.
func NewKMLExporter() *KMLExporter {
	return &KMLExporter{}
}

// Render encodes doc as an indented KML document.
func (e *KMLExporter) Render(doc KMLDocument) ([]byte, error) {
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("kml requires at least one feature")
	}

	children := []kml.Element{
		kml.Name(doc.Name),
		kml.SharedStyle(KMLStyleClosure, kml.LineStyle(kml.Color(color.RGBA{R: 220, G: 20, B: 20, A: 255}), kml.Width(5))),
		kml.SharedStyle(KMLStyleDetour, kml.LineStyle(kml.Color(color.RGBA{R: 240, G: 160, B: 0, A: 255}), kml.Width(3))),
		kml.SharedStyle(KMLStyleRecommended, kml.LineStyle(kml.Color(color.RGBA{R: 20, G: 160, B: 60, A: 255}), kml.Width(4))),
		kml.SharedStyle(KMLStyleSite, kml.IconStyle(kml.Color(color.RGBA{R: 220, G: 20, B: 20, A: 255}))),
	}
	if doc.Description != "" {
		children = append(children, kml.Description(doc.Description))
	}
	for _, f := range doc.Features {
		placemark, err := featurePlacemark(f)
		if err != nil {
			return nil, err
		}
		children = append(children, placemark)
	}

	buf := &bytes.Buffer{}
	if err := kml.KML(kml.Document(children...)).WriteIndent(buf, "", "  "); err != nil {
		return nil, fmt.Errorf("render kml: %w", err)
	}
	return buf.Bytes(), nil
}

func featurePlacemark(f KMLFeature) (kml.Element, error) {
	elements := []kml.Element{kml.Name(f.Name)}
	if f.Description != "" {
		elements = append(elements, kml.Description(f.Description))
	}
	if f.Style != "" {
		elements = append(elements, kml.StyleURL("#"+f.Style))
	}

	switch {
	case len(f.Line) >= 2:
		coords := make([]kml.Coordinate, len(f.Line))
		for i, c := range f.Line {
			coords[i] = kml.Coordinate{Lon: c.Longitude, Lat: c.Latitude}
		}
		elements = append(elements, kml.LineString(kml.Tessellate(true), kml.Coordinates(coords...)))
	case f.Point != nil:
		elements = append(elements, kml.Point(kml.Coordinates(kml.Coordinate{Lon: f.Point.Longitude, Lat: f.Point.Latitude})))
	default:
		return nil, fmt.Errorf("kml feature %q has no geometry", f.Name)
	}
	return kml.Placemark(elements...), nil
}
