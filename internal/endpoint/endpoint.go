// Package endpoint holds the static table that maps a resource kind and an
// operation to the REST path, verb and field list used for it.
package endpoint

import (
	"fmt"
	"net/http"
	"strings"
)

// Resource is a kind of remote object qsync knows how to move.
type Resource int

const (
	Networks Resource = iota + 1
	Assets
	RefTables
	RefSets
	RefMaps
	RefMapSets
	RefTable
	Events
)

var resourceNames = map[Resource]string{
	Networks:   "networks",
	Assets:     "assets",
	RefTables:  "reftables",
	RefSets:    "refsets",
	RefMaps:    "refmaps",
	RefMapSets: "refmapsets",
	RefTable:   "reftable",
	Events:     "events",
}

func (r Resource) String() string {
	if s, ok := resourceNames[r]; ok {
		return s
	}
	return fmt.Sprintf("resource(%d)", int(r))
}

// IsReference reports whether r addresses a single named reference object.
func (r Resource) IsReference() bool { return r == RefTable }

// IsCollection reports whether r lists reference data collections.
func (r Resource) IsCollection() bool {
	switch r {
	case RefTables, RefSets, RefMaps, RefMapSets:
		return true
	}
	return false
}

// Resources returns every resource kind in declaration order.
func Resources() []Resource {
	return []Resource{Networks, Assets, RefTables, RefSets, RefMaps, RefMapSets, RefTable, Events}
}

// ParseResource maps a CLI name to a Resource.
func ParseResource(s string) (Resource, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range resourceNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// Operation is what the caller wants to do with a resource.
type Operation int

const (
	Export Operation = iota + 1
	Import
	Delete
	// Fields lists the exportable fields; it resolves to the export descriptor.
	Fields
)

var operationNames = map[Operation]string{
	Export: "export",
	Import: "import",
	Delete: "delete",
	Fields: "fields",
}

func (o Operation) String() string {
	if s, ok := operationNames[o]; ok {
		return s
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// ParseOperation maps a CLI name to an Operation.
func ParseOperation(s string) (Operation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for o, name := range operationNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Descriptor describes one (resource, operation) endpoint.
type Descriptor struct {
	Resource  Resource
	Operation Operation
	// Path is relative to the API base and may hold {id}, {key}, {field}
	// and {value} placeholders.
	Path   string
	Method string
	// Fields are the flat fields produced on export, in column order.
	Fields []string
	// ServerFields are native names accepted by the server-side filter and
	// fields query parameters.
	ServerFields []string
	// Sources maps a derived flat field to the native field it is computed
	// from, so server-side projections still fetch what the decoder needs.
	Sources map[string]string
	// FallbackSource is the native field behind flat fields that are only
	// known at runtime (asset properties).
	FallbackSource string
	// ID names the record field (or reference name) substituted into {id}.
	ID string
}

// NativeField returns the server-side field backing a flat field.
func (d Descriptor) NativeField(flat string) (string, bool) {
	if s, ok := d.Sources[flat]; ok {
		return s, true
	}
	for _, f := range d.ServerFields {
		if f == flat {
			return f, true
		}
	}
	if d.FallbackSource != "" {
		return d.FallbackSource, true
	}
	return "", false
}

// HasField reports whether name is one of the descriptor's exportable fields.
func (d Descriptor) HasField(name string) bool {
	for _, f := range d.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Expand substitutes placeholders in the path template. Values are inserted
// verbatim; callers escape them first.
func (d Descriptor) Expand(params map[string]string) string {
	p := d.Path
	for k, v := range params {
		p = strings.ReplaceAll(p, "{"+k+"}", v)
	}
	return p
}

// NotFoundError is returned for a (resource, operation) pair that has no
// endpoint.
type NotFoundError struct {
	Resource  Resource
	Operation Operation
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("operation %s is not implemented for %s", e.Operation, e.Resource)
}

type key struct {
	r Resource
	o Operation
}

var (
	networkFields = []string{"id", "name", "cidr", "country_code", "description", "group",
		"coord_x", "coord_y", "vlan", "critical", "wireless", "address"}
	networkServerFields = []string{"id", "name", "cidr", "country_code", "description", "group"}
	collectionFields    = []string{"name", "type", "elements"}
	collectionServer    = []string{"name", "element_type", "number_of_elements"}

	networkSources = map[string]string{
		"coord_x": "location", "coord_y": "location",
		"vlan": "description", "critical": "description", "wireless": "description", "address": "description",
	}
	collectionSources = map[string]string{"type": "element_type", "elements": "number_of_elements"}
)

var registry = map[key]Descriptor{
	{Networks, Export}: {
		Path: "config/network_hierarchy/networks", Method: http.MethodGet,
		Fields: networkFields, ServerFields: networkServerFields, Sources: networkSources,
	},
	{Networks, Import}: {
		Path: "config/network_hierarchy/staged_networks", Method: http.MethodPut,
		Fields: networkFields, ID: "id",
	},
	{Assets, Export}: {
		Path: "asset_model/assets", Method: http.MethodGet,
		Fields: []string{"id", "IP"}, ServerFields: []string{"id", "interfaces", "properties"},
		Sources: map[string]string{"IP": "interfaces"}, FallbackSource: "properties",
	},
	{Assets, Import}: {
		Path: "asset_model/assets/{id}", Method: http.MethodPost,
		Fields: []string{"id"}, ID: "id",
	},
	{RefTables, Export}: {
		Path: "reference_data/tables", Method: http.MethodGet,
		Fields: collectionFields, ServerFields: collectionServer, Sources: collectionSources,
	},
	{RefSets, Export}: {
		Path: "reference_data/sets", Method: http.MethodGet,
		Fields: collectionFields, ServerFields: collectionServer, Sources: collectionSources,
	},
	{RefMaps, Export}: {
		Path: "reference_data/maps", Method: http.MethodGet,
		Fields: collectionFields, ServerFields: collectionServer, Sources: collectionSources,
	},
	{RefMapSets, Export}: {
		Path: "reference_data/map_of_sets", Method: http.MethodGet,
		Fields: collectionFields, ServerFields: collectionServer, Sources: collectionSources,
	},
	{RefTable, Export}: {
		Path: "reference_data/tables/{id}", Method: http.MethodGet, ID: "name",
	},
	{RefTable, Import}: {
		Path: "reference_data/tables/bulk_load/{id}", Method: http.MethodPost, ID: "name",
	},
	{RefTable, Delete}: {
		Path: "reference_data/tables/{id}/{key}/{field}?value={value}", Method: http.MethodDelete, ID: "name",
	},
	{Events, Export}: {
		Path: "ariel/searches", Method: http.MethodGet,
	},
}

func init() {
	for k, d := range registry {
		d.Resource, d.Operation = k.r, k.o
		registry[k] = d
	}
}

// Lookup returns the descriptor for (r, op). Fields resolves to Export. The
// returned descriptor is a copy.
func Lookup(r Resource, op Operation) (Descriptor, error) {
	want := op
	if op == Fields {
		want = Export
	}
	d, ok := registry[key{r, want}]
	if !ok {
		return Descriptor{}, &NotFoundError{Resource: r, Operation: op}
	}
	d.Fields = append([]string(nil), d.Fields...)
	d.ServerFields = append([]string(nil), d.ServerFields...)
	if d.Sources != nil {
		src := make(map[string]string, len(d.Sources))
		for k, v := range d.Sources {
			src[k] = v
		}
		d.Sources = src
	}
	return d, nil
}
