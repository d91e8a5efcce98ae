package api

// Document is a file packaged for embedding in a JSON request body.
type Document struct {
	Name string `json:"name"`
	B64  string `json:"b64"`
}

// QueryRequest is one query submission against a query engine.
type QueryRequest struct {
	Prompt        string     `json:"prompt"`
	QueryEngineID string     `json:"queryEngineId"`
	Documents     []Document `json:"documents,omitempty"`
}

// StreamChunk is one event in a streamed query response. Exactly one
// terminal event (Done or Err) closes the stream.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// QueryEngine is the canonical server-side query engine resource.
// Audit fields are server-managed and never client-writable.
type QueryEngine struct {
	ID                 string     `json:"id,omitempty"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	DocumentSource     string     `json:"document_source,omitempty"`
	SimilarityTopK     int        `json:"similarity_top_k,omitempty"`
	Documents          []Document `json:"documents,omitempty"`
	CreatedBy          string     `json:"created_by,omitempty"`
	CreatedTime        string     `json:"created_time,omitempty"`
	LastModifiedBy     string     `json:"last_modified_by,omitempty"`
	LastModifiedTime   string     `json:"last_modified_time,omitempty"`
	ArchivedAtTime     string     `json:"archived_at_timestamp,omitempty"`
	ArchivedBy         string     `json:"archived_by,omitempty"`
	DeletedAtTimestamp string     `json:"deleted_at_timestamp,omitempty"`
	DeletedBy          string     `json:"deleted_by,omitempty"`
}
