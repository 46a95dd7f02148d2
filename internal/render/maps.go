package render

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/isdelr/profile-view/internal/models"
)

// MapRenderer draws the map region for a set of coordinates.
type MapRenderer interface {
	RenderMap(geo models.Geo) (template.HTML, error)
}

// MapFunc adapts a function to MapRenderer.
type MapFunc func(geo models.Geo) (template.HTML, error)

func (f MapFunc) RenderMap(geo models.Geo) (template.HTML, error) { return f(geo) }

// OSMEmbed renders an OpenStreetMap iframe centred on the coordinates.
type OSMEmbed struct {
	// Span is the half-width of the bounding box in degrees.
	Span float64
}

var osmFrame = template.Must(template.New("osm").Parse(
	`<iframe class="map" title="Location map" loading="lazy" src="{{.}}"></iframe>`))

func (m OSMEmbed) RenderMap(geo models.Geo) (template.HTML, error) {
	lat, err := strconv.ParseFloat(geo.Lat, 64)
	if err != nil || lat < -90 || lat > 90 {
		return "", fmt.Errorf("invalid latitude %q", geo.Lat)
	}
	lng, err := strconv.ParseFloat(geo.Lng, 64)
	if err != nil || lng < -180 || lng > 180 {
		return "", fmt.Errorf("invalid longitude %q", geo.Lng)
	}
	span := m.Span
	if span <= 0 {
		span = 0.05
	}

	q := url.Values{}
	q.Set("bbox", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", lng-span, lat-span, lng+span, lat+span))
	q.Set("layer", "mapnik")
	q.Set("marker", geo.Lat+","+geo.Lng)
	src := "https://www.openstreetmap.org/export/embed.html?" + q.Encode()

	var buf strings.Builder
	if err := osmFrame.Execute(&buf, src); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
