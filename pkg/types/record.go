package types

// Record is one unified row-view entry: the canonical surrogate id plus
// every attribute's value, defaulted where the attribute had no row for
// the key. It is also the downstream wire shape.
type Record struct {
	Key           string   `json:"key" yaml:"key"`
	ID            int64    `json:"id" yaml:"id"`
	Authors       []string `json:"authors" yaml:"authors"`
	Refereed      bool     `json:"refereed" yaml:"refereed"`
	SimbadObjects []string `json:"simbad_objects" yaml:"simbad_objects"`
	NedObjects    []string `json:"ned_objects" yaml:"ned_objects"`
	Grants        []string `json:"grants" yaml:"grants"`
	Citations     []string `json:"citations" yaml:"citations"`
	Boost         float64  `json:"boost" yaml:"boost"`
	CitationCount int64    `json:"citation_count" yaml:"citation_count"`
	ReadCount     int64    `json:"read_count" yaml:"read_count"`
	NormCites     int64    `json:"norm_cites" yaml:"norm_cites"`
	Readers       []string `json:"readers" yaml:"readers"`
	Downloads     []int64  `json:"downloads" yaml:"downloads"`
	Reads         []int64  `json:"reads" yaml:"reads"`
	Reference     []string `json:"reference" yaml:"reference"`
}

// Delta holds the result of comparing a candidate generation against a
// baseline: keys whose compared fields differ, and keys newly present in
// the candidate's canonical domain. The two sets are disjoint.
type Delta struct {
	Changed []string `json:"changed" yaml:"changed"`
	Added   []string `json:"added" yaml:"added"`
}

// AuditReport holds per-field difference counts between two generations.
// Diagnostic only; a key that differs in several fields is counted once
// per field.
type AuditReport struct {
	Generation string           `json:"generation" yaml:"generation"`
	Baseline   string           `json:"baseline" yaml:"baseline"`
	Changed    int64            `json:"changed" yaml:"changed"`
	Fields     map[string]int64 `json:"fields" yaml:"fields"`
}
