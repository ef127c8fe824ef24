package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Column is one projection column: a field denormalized out of the cached
// payload so local queries can filter and sort without deserializing rows.
// Values are always recomputed from the payload at upsert time.
type Column struct {
	Name string
	Type string // SQLite column type: TEXT, INTEGER or REAL
	Get  func(payload map[string]any) any
}

// Schema describes one cached entity type: the remote table it mirrors, its
// projection columns, and whether rows carry coordinates. The set of schemas
// is closed; every entity type the engine handles is declared here.
type Schema struct {
	Name    string // remote table name, also used to derive the cache table
	Columns []Column
	Geo     bool // payload carries latitude/longitude projections
}

// CacheTable returns the local table name for this schema.
func (s *Schema) CacheTable() string {
	return "cache_" + s.Name
}

func textColumn(name, field string) Column {
	return Column{Name: name, Type: "TEXT", Get: func(p map[string]any) any {
		if v, ok := p[field].(string); ok && v != "" {
			return v
		}
		return nil
	}}
}

func realColumn(name, field string) Column {
	return Column{Name: name, Type: "REAL", Get: func(p map[string]any) any {
		if v, ok := p[field].(float64); ok {
			return v
		}
		return nil
	}}
}

// timeColumn projects an RFC3339 timestamp field to unix milliseconds so
// range predicates stay numeric.
func timeColumn(name, field string) Column {
	return Column{Name: name, Type: "INTEGER", Get: func(p map[string]any) any {
		s, ok := p[field].(string)
		if !ok || s == "" {
			return nil
		}
		ms, err := parseTimeMillis(s)
		if err != nil {
			return nil
		}
		return ms
	}}
}

var (
	// WorkOrders caches maintenance work orders. Geo columns are optional
	// on the payload: unassigned orders have no site yet.
	WorkOrders = &Schema{
		Name: "work_orders",
		Columns: []Column{
			textColumn("status", "status"),
			textColumn("priority", "priority"),
			timeColumn("due_date", "due_date"),
			realColumn("latitude", "latitude"),
			realColumn("longitude", "longitude"),
		},
		Geo: true,
	}

	// Units caches rentable units; these are the primary proximity targets.
	Units = &Schema{
		Name: "units",
		Columns: []Column{
			textColumn("status", "status"),
			realColumn("latitude", "latitude"),
			realColumn("longitude", "longitude"),
		},
		Geo: true,
	}

	// Contractors caches vendors. No coordinates.
	Contractors = &Schema{
		Name: "contractors",
		Columns: []Column{
			textColumn("specialty", "specialty"),
			realColumn("rating", "rating"),
		},
	}
)

// Schemas returns every cached entity type, in sync order.
func Schemas() []*Schema {
	return []*Schema{WorkOrders, Units, Contractors}
}

// SchemaByName resolves a remote table name to its schema.
func SchemaByName(name string) (*Schema, bool) {
	for _, s := range Schemas() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// column looks up a projection column by name.
func (s *Schema) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ddl returns the CREATE statements for this schema's cache table.
func (s *Schema) ddl() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.CacheTable())
	b.WriteString("\tid              TEXT PRIMARY KEY,\n")
	b.WriteString("\torganization_id TEXT NOT NULL,\n")
	b.WriteString("\tpayload         JSON NOT NULL,\n")
	b.WriteString("\tupdated_at      INTEGER NOT NULL")
	for _, c := range s.Columns {
		fmt.Fprintf(&b, ",\n\t%s %s", c.Name, c.Type)
	}
	b.WriteString("\n);\n")
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_org ON %s(organization_id);\n",
		s.Name, s.CacheTable())
	return b.String()
}

// projections decodes the payload and computes every projection value, in
// column order.
func (s *Schema) projections(payload json.RawMessage) ([]any, error) {
	var p map[string]any
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	vals := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		vals[i] = c.Get(p)
	}
	return vals, nil
}
