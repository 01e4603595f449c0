// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema declares the attribute catalog: which per-attribute
// stores exist, the shape and default of every row-view column, and the
// field lists that drive change detection and auditing. It is pure
// policy; the store, join, and delta packages turn it into SQL.
package schema

import (
	"fmt"
	"strings"
)

// KeyColumn is the document key column present in every table.
const KeyColumn = "key"

// RowViewTable is the unified joined table materialized per generation.
const RowViewTable = "rowview"

// Aux tables persisted by delta computation inside the candidate
// generation, so diffs stay replayable after the baseline is destroyed.
const (
	ChangedKeysTable = "changed_keys"
	AddedKeysTable   = "added_keys"
)

// Kind classifies a value column's shape.
type Kind int

const (
	// KindID is the canonical surrogate id.
	KindID Kind = iota
	// KindFlag is a boolean stored as 0/1; default false.
	KindFlag
	// KindScalar is a numeric scalar; default 0.
	KindScalar
	// KindFloat is a float scalar; default 0.
	KindFloat
	// KindSequence is an ordered string sequence stored as a JSON array
	// literal; default empty sequence.
	KindSequence
	// KindVector is a fixed-length integer vector stored as a JSON
	// array literal; default all-zero vector.
	KindVector
)

// Column is one value column of an attribute store and of the row view.
type Column struct {
	Name string
	Kind Kind
}

// SQLType returns the SQLite column type.
func (c Column) SQLType() string {
	switch c.Kind {
	case KindID, KindFlag, KindScalar:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// DefaultSQL returns the SQL literal substituted by the left join when
// the attribute has no row for a key. vectorLen sizes the zero vector.
func (c Column) DefaultSQL(vectorLen int) string {
	switch c.Kind {
	case KindFlag, KindScalar, KindFloat:
		return "0"
	case KindSequence:
		return "'[]'"
	case KindVector:
		return "'" + ZeroVectorJSON(vectorLen) + "'"
	default:
		return ""
	}
}

// ZeroVectorJSON returns the JSON literal for an all-zero vector of n
// buckets.
func ZeroVectorJSON(n int) string {
	if n <= 0 {
		return "[]"
	}
	return "[" + strings.Repeat("0,", n-1) + "0]"
}

// Family classifies an attribute by how its flat file is loaded.
type Family int

const (
	// FamilyCanonical rows carry the key and its surrogate id; the file
	// defines the authoritative key domain.
	FamilyCanonical Family = iota
	// FamilyFlag rows carry only the key; presence means true.
	FamilyFlag
	// FamilySequence rows carry the key plus a pre-aggregated ordered
	// sequence of string elements.
	FamilySequence
	// FamilyScalarGroup rows carry the key plus one numeric value per
	// column.
	FamilyScalarGroup
	// FamilyVector rows carry the key plus one integer per bucket.
	FamilyVector
)

// Attribute is one independently sourced store.
type Attribute struct {
	// Name is the store's table name.
	Name string

	Family Family

	// Columns are the value columns contributed to the row view, in
	// row-view order.
	Columns []Column
}

// CanonicalName is the attribute defining the admissible key domain.
const CanonicalName = "canonical"

func seq(table, column string) Attribute {
	return Attribute{Name: table, Family: FamilySequence,
		Columns: []Column{{Name: column, Kind: KindSequence}}}
}

// Attributes is the full catalog, canonical first, value columns in
// row-view order.
var Attributes = []Attribute{
	{Name: CanonicalName, Family: FamilyCanonical,
		Columns: []Column{{Name: "id", Kind: KindID}}},
	seq("author", "authors"),
	{Name: "refereed", Family: FamilyFlag,
		Columns: []Column{{Name: "refereed", Kind: KindFlag}}},
	seq("simbad", "simbad_objects"),
	seq("ned", "ned_objects"),
	seq("grants", "grants"),
	seq("citation", "citations"),
	{Name: "relevance", Family: FamilyScalarGroup,
		Columns: []Column{
			{Name: "boost", Kind: KindFloat},
			{Name: "citation_count", Kind: KindScalar},
			{Name: "read_count", Kind: KindScalar},
			{Name: "norm_cites", Kind: KindScalar},
		}},
	seq("reader", "readers"),
	{Name: "download", Family: FamilyVector,
		Columns: []Column{{Name: "downloads", Kind: KindVector}}},
	{Name: "reads", Family: FamilyVector,
		Columns: []Column{{Name: "reads", Kind: KindVector}}},
	seq("reference", "reference"),
}

// CompareFieldsV1 is version 1 of the change-detection field list. It
// covers every row-view value field except reference: a reference-only
// difference does not mark a record changed, matching the long-standing
// production behavior. Bump the version rather than editing in place.
var CompareFieldsV1 = []string{
	"authors",
	"refereed",
	"simbad_objects",
	"ned_objects",
	"grants",
	"citations",
	"boost",
	"citation_count",
	"read_count",
	"norm_cites",
	"readers",
	"downloads",
	"reads",
}

// AuditFields lists every row-view value field, reference included; the
// change auditor reports a count per field regardless of whether the
// field participates in change detection.
var AuditFields = []string{
	"authors",
	"refereed",
	"simbad_objects",
	"ned_objects",
	"grants",
	"citations",
	"boost",
	"citation_count",
	"read_count",
	"norm_cites",
	"readers",
	"downloads",
	"reads",
	"reference",
}

// ByName returns the attribute with the given name.
func ByName(name string) (Attribute, error) {
	for _, a := range Attributes {
		if a.Name == name {
			return a, nil
		}
	}
	return Attribute{}, fmt.Errorf("unknown attribute %q", name)
}

// ValueColumns returns every row-view value column after key and id, in
// row-view order.
func ValueColumns() []Column {
	var cols []Column
	for _, a := range Attributes {
		if a.Name == CanonicalName {
			continue
		}
		cols = append(cols, a.Columns...)
	}
	return cols
}

// RowViewColumns returns the full ordered row-view column list.
func RowViewColumns() []string {
	cols := []string{KeyColumn, "id"}
	for _, c := range ValueColumns() {
		cols = append(cols, c.Name)
	}
	return cols
}

// CreateTableSQL returns the DDL for one attribute store. The key is
// the primary key, so a loader that repeats a key fails the insert
// instead of overwriting.
func CreateTableSQL(a Attribute) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (%s TEXT PRIMARY KEY", a.Name, KeyColumn)
	for _, c := range a.Columns {
		fmt.Fprintf(&b, ", %s %s", c.Name, c.SQLType())
	}
	b.WriteString(")")
	return b.String()
}
