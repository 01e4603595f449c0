// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSQL(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		want string
	}{
		{name: "sequence defaults to empty array", col: Column{Name: "authors", Kind: KindSequence}, want: "'[]'"},
		{name: "flag defaults to false", col: Column{Name: "refereed", Kind: KindFlag}, want: "0"},
		{name: "scalar defaults to zero", col: Column{Name: "citation_count", Kind: KindScalar}, want: "0"},
		{name: "float defaults to zero", col: Column{Name: "boost", Kind: KindFloat}, want: "0"},
		{name: "vector defaults to zero buckets", col: Column{Name: "reads", Kind: KindVector}, want: "'[0,0,0]'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.col.DefaultSQL(3))
		})
	}
}

func TestZeroVectorJSON(t *testing.T) {
	assert.Equal(t, "[]", ZeroVectorJSON(0))
	assert.Equal(t, "[0]", ZeroVectorJSON(1))
	assert.Equal(t, "[0,0,0,0]", ZeroVectorJSON(4))
}

// The comparison list intentionally excludes reference: a
// reference-only difference never marks a record changed, while the
// audit list still reports it.
func TestCompareFieldListExcludesReference(t *testing.T) {
	assert.NotContains(t, CompareFieldsV1, "reference")
	assert.Contains(t, AuditFields, "reference")

	for _, f := range CompareFieldsV1 {
		assert.Contains(t, AuditFields, f, "compared field %s must be auditable", f)
	}
	assert.Len(t, AuditFields, len(CompareFieldsV1)+1)
}

func TestAuditFieldsCoverEveryValueColumn(t *testing.T) {
	cols := ValueColumns()
	require.Len(t, AuditFields, len(cols))
	for _, c := range cols {
		assert.Contains(t, AuditFields, c.Name)
	}
}

func TestRowViewColumnsOrder(t *testing.T) {
	cols := RowViewColumns()
	require.Equal(t, KeyColumn, cols[0])
	require.Equal(t, "id", cols[1])
	assert.Equal(t, []string{
		"authors", "refereed", "simbad_objects", "ned_objects", "grants",
		"citations", "boost", "citation_count", "read_count", "norm_cites",
		"readers", "downloads", "reads", "reference",
	}, cols[2:])
}

func TestCreateTableSQL(t *testing.T) {
	canonical, err := ByName(CanonicalName)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE canonical (key TEXT PRIMARY KEY, id INTEGER)",
		CreateTableSQL(canonical))

	relevance, err := ByName("relevance")
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE relevance (key TEXT PRIMARY KEY, boost REAL, citation_count INTEGER, read_count INTEGER, norm_cites INTEGER)",
		CreateTableSQL(relevance))
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName("velocity")
	assert.Error(t, err)
}
