package types

// StoreConfig holds settings for the generation store.
type StoreConfig struct {
	// DataDir is the directory holding one database file per generation.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// VectorLength is the fixed bucket count for the downloads and reads
	// vectors (default 21). It must match the ingested flat files.
	VectorLength int `json:"vector_length" yaml:"vector_length"`

	// BusyTimeoutMS is the SQLite busy timeout applied to every
	// connection, in milliseconds (default 30000). Parallel attribute
	// loads of one generation contend on the single writer lock.
	BusyTimeoutMS int `json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// IngestConfig holds settings for the attribute ingest stage.
type IngestConfig struct {
	// DataPath is the base directory for attribute flat files.
	DataPath string `json:"data_path" yaml:"data_path"`

	// Files maps attribute name to flat-file path relative to DataPath.
	// Attributes without an entry are skipped (their stores stay empty
	// and the row view falls back to defaults).
	Files map[string]string `json:"files" yaml:"files"`

	// MaxRows caps the rows read per flat file; -1 means all rows.
	// Set low during smoke ingests to load just a little data quickly.
	MaxRows int `json:"max_rows" yaml:"max_rows"`
}

// DeltaConfig holds settings for delta computation.
type DeltaConfig struct {
	// CompareFields is the row-view field list used for change
	// detection. Empty means the current versioned default
	// (schema.CompareFieldsV1). Fields absent from this list are
	// invisible to the changed set on purpose.
	CompareFields []string `json:"compare_fields" yaml:"compare_fields"`
}

// SinkConfig holds connection settings for the downstream message sink.
type SinkConfig struct {
	// Addrs are the Redis/Valkey addresses.
	Addrs []string `json:"addrs" yaml:"addrs"`

	// Password is the optional auth password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Stream is the destination stream name known to the downstream
	// consumer.
	Stream string `json:"stream" yaml:"stream"`
}

// DistributorConfig holds settings for downstream streaming.
type DistributorConfig struct {
	// BatchSize is the maximum records per delivery batch (default 100;
	// 1 delivers one record per batch).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	Sink SinkConfig `json:"sink" yaml:"sink"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Env selects the logger profile: prod (JSON) or dev (console).
	Env string `json:"env" yaml:"env"`

	// Level overrides the log level: debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Store       StoreConfig       `json:"store" yaml:"store"`
	Ingest      IngestConfig      `json:"ingest" yaml:"ingest"`
	Delta       DeltaConfig       `json:"delta" yaml:"delta"`
	Distributor DistributorConfig `json:"distributor" yaml:"distributor"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}
