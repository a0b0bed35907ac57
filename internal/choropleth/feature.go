// Package choropleth turns dataset features into styled, annotated map
// regions: fill and stroke from the shared color scale, popup text from the
// feature attributes.
package choropleth

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Attribute names and placeholders used by the dataset.
const (
	PropCountry = "country"
	PropRegion  = "region"
	PropValue   = "value"

	UnknownCountry = "Unknown"
	NoRegion       = "No region"
)

// Feature is the attribute view of one dataset region.
type Feature struct {
	Country string
	Region  string // empty when absent
	// HasValue reports whether the value attribute is set: a non-empty
	// string, a non-zero number or true. It says nothing about whether the
	// attribute parses.
	HasValue bool
	Value    float64 // NaN when absent or non-numeric
}

// HasRegion reports whether the region line should be shown.
func (f Feature) HasRegion() bool {
	return f.Region != "" && f.Region != NoRegion
}

// FromGeoJSON extracts the attributes of f. Missing or malformed
// attributes are substituted, never reported.
func FromGeoJSON(f *geojson.Feature) Feature {
	var props geojson.Properties
	if f != nil {
		props = f.Properties
	}

	out := Feature{
		Country: textAttr(props, PropCountry),
		Region:  textAttr(props, PropRegion),
		Value:   math.NaN(),
	}
	if out.Country == "" {
		out.Country = UnknownCountry
	}

	if raw, ok := props[PropValue]; ok && raw != nil {
		switch v := raw.(type) {
		case string:
			out.HasValue = v != ""
			out.Value = ParseValue(v)
		case float64:
			// A zero is drawn with the low end of the ramp but reads as no data.
			out.HasValue = v != 0
			out.Value = v
		case bool:
			out.HasValue = v
		default:
			out.HasValue = true
		}
	}
	return out
}

func textAttr(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseValue reads the leading decimal number of s, ignoring leading
// whitespace and any trailing text. It returns NaN when s does not start
// with a number.
func ParseValue(s string) float64 {
	s = strings.TrimSpace(s)
	m := numericPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	// Out-of-range exponents come back as ±Inf alongside a range error.
	v, _ := strconv.ParseFloat(m, 64)
	return v
}
