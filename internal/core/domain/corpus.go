package domain

// Corpus is an externally prepared set of courses and their content chunks
type Corpus struct {
	Courses []Course       `json:"courses" yaml:"courses"`
	Chunks  []ContentChunk `json:"chunks" yaml:"chunks"`
}

// IngestResult reports what an ingest run wrote
type IngestResult struct {
	Courses int  `json:"courses"`
	Chunks  int  `json:"chunks"`
	Skipped bool `json:"skipped"` // another instance held the ingest lock
}
