package opensearch

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// nsGML prefixes the GML namespaces (3.1 and 3.2) of time periods.
const nsGML = "http://www.opengis.net/gml"

// Option is one allowed value of a search parameter.
type Option struct {
	Value string `xml:"value,attr"`
	Label string `xml:"label,attr"`
}

// Parameter is a search parameter of a results template.
type Parameter struct {
	Name         string   `xml:"name,attr"`
	Value        string   `xml:"value,attr"`
	MinInclusive string   `xml:"minInclusive,attr"`
	MaxInclusive string   `xml:"maxInclusive,attr"`
	Options      []Option `xml:"http://a9.com/-/spec/opensearch/extensions/parameters/1.0/ Option"`
}

type urlTemplate struct {
	Rel        string      `xml:"rel,attr"`
	Type       string      `xml:"type,attr"`
	Template   string      `xml:"template,attr"`
	Parameters []Parameter `xml:"http://a9.com/-/spec/opensearch/extensions/parameters/1.0/ Parameter"`
}

type descriptionDoc struct {
	XMLName xml.Name      `xml:"http://a9.com/-/spec/opensearch/1.1/ OpenSearchDescription"`
	URLs    []urlTemplate `xml:"http://a9.com/-/spec/opensearch/1.1/ Url"`
}

// Description holds the facets of the GeoJSON results template of a
// description document.
type Description struct {
	Template   string
	Parameters []Parameter

	// Start and End are the date parts (YYYY-MM-DD) of the temporal
	// bounds, empty when unknown.
	Start string
	End   string
}

// ParseDescription parses a description document. Temporal bounds come from
// the time:start/time:end parameters, falling back to a gml:TimePeriod.
func ParseDescription(data []byte) (*Description, error) {
	var doc descriptionDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse description: %w", err)
	}

	var results *urlTemplate
	for i := range doc.URLs {
		u := &doc.URLs[i]
		if u.Rel == "results" && u.Type == "application/geo+json" {
			results = u
		}
	}
	if results == nil {
		return nil, ErrNoResultsURL
	}

	d := &Description{
		Template:   results.Template,
		Parameters: results.Parameters,
	}

	for _, p := range results.Parameters {
		switch {
		case (p.Name == "startDate" || p.Value == "{time:start}") && p.MinInclusive != "":
			d.Start = datePart(p.MinInclusive)
		case (p.Name == "endDate" || p.Value == "{time:end}") && p.MaxInclusive != "":
			d.End = datePart(p.MaxInclusive)
		}
	}

	if d.Start == "" || d.End == "" {
		begin, end, err := timePeriod(data)
		if err != nil {
			return nil, err
		}
		if d.Start == "" {
			d.Start = datePart(begin)
		}
		if d.End == "" {
			d.End = datePart(end)
		}
	}

	return d, nil
}

func datePart(ts string) string {
	date, _, _ := strings.Cut(strings.TrimSpace(ts), "T")
	return date
}

// timePeriod returns the begin and end positions of the first
// gml:TimePeriod in data.
func timePeriod(data []byte) (string, string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		inPeriod   bool
		field      string
		begin, end string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return begin, end, nil
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to scan description: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !strings.HasPrefix(t.Name.Space, nsGML) {
				continue
			}
			switch t.Name.Local {
			case "TimePeriod":
				inPeriod = true
			case "beginPosition", "endPosition":
				if inPeriod {
					field = t.Name.Local
				}
			}
		case xml.CharData:
			switch field {
			case "beginPosition":
				begin += string(t)
			case "endPosition":
				end += string(t)
			}
		case xml.EndElement:
			if strings.HasPrefix(t.Name.Space, nsGML) && t.Name.Local == "TimePeriod" {
				return begin, end, nil
			}
			field = ""
		}
	}
}

// Options returns the allowed values of the named parameter.
func (d *Description) Options(name string) []Option {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p.Options
		}
	}
	return nil
}

// Values returns the option values of the named parameter.
func (d *Description) Values(name string) []string {
	opts := d.Options(name)
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Value)
	}
	return out
}

// DRSIDs lists the DRS facet values.
func (d *Description) DRSIDs() []string { return d.Values("drsId") }

// FileFormats lists the file format facet options.
func (d *Description) FileFormats() []Option { return d.Options("fileFormat") }

// ECVs maps ECV facet values to their display labels. The label counts in
// parentheses are dropped. Ice sheets and land cover each span two labels.
func (d *Description) ECVs() map[string][]string {
	out := make(map[string][]string)
	for _, o := range d.Options("ecv") {
		switch o.Value {
		case "ICESHEETS":
			out[o.Value] = []string{"Antarctic Ice Sheet", "Greenland Ice Sheet"}
		case "LC":
			out[o.Value] = []string{"Land Cover", "High Resolution Land Cover"}
		default:
			label, _, _ := strings.Cut(o.Label, " (")
			out[o.Value] = []string{label}
		}
	}
	return out
}
