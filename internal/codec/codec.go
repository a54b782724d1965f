// Package codec converts topology fragments to and from file formats.
package codec

import (
	"fmt"
	"io"
	"sort"

	"smiscope/internal/domain"
)

// Importer interface for importing graph data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.GraphFragment, error)
	Format() string
}

// Exporter interface for exporting graph data to various formats
type Exporter interface {
	Export(fragment *domain.GraphFragment, w io.Writer) error
	Format() string
}

// exporters lists every export format by identifier
var exporters = map[string]Exporter{
	"json":              NewJSONCodec(),
	"yaml":              NewYAMLCodec(),
	"ansible-inventory": NewAnsibleCodec(),
}

// importers lists every format a fragment can be read back from
var importers = map[string]Importer{
	"json": NewJSONCodec(),
	"yaml": NewYAMLCodec(),
}

// ImporterFor returns the importer for a format identifier
func ImporterFor(format string) (Importer, error) {
	if i, ok := importers[format]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("unsupported import format %q", format)
}

// ExporterFor returns the exporter for a format identifier
func ExporterFor(format string) (Exporter, error) {
	if e, ok := exporters[format]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unsupported export format %q (supported: %v)", format, Formats())
}

// Formats returns the supported export format identifiers
func Formats() []string {
	out := make([]string, 0, len(exporters))
	for f := range exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
