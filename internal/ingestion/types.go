// Package ingestion defines the Kafka event schema driving the indexing
// service and the handler that turns events into index writes.
package ingestion

import "time"

// Operations accepted on the ingest topic.
const (
	OpIndex  = "index"
	OpDelete = "delete"
)

// EventField is one document field as carried on the wire.
type EventField struct {
	Name string `json:"name"`
	// Kind is one of: text (tokenized), keyword (untokenized), numeric,
	// binary, stored. Defaults to text.
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
	Numeric int64  `json:"numeric,omitempty"`
	Binary  []byte `json:"binary,omitempty"`
	Stored  *bool  `json:"stored,omitempty"`
}

// CompletionEvent is published to the index-complete topic after a document
// has been mapped and enqueued, so downstream consumers can track ingest
// progress per document.
type CompletionEvent struct {
	EventID     string    `json:"event_id"`
	Index       string    `json:"index"`
	DocumentID  string    `json:"document_id,omitempty"`
	DocNumber   int       `json:"doc_number"`
	CompletedAt time.Time `json:"completed_at"`
}

// IngestEvent is the Kafka message payload consumed by the indexer.
type IngestEvent struct {
	EventID    string       `json:"event_id"`
	Op         string       `json:"op"`
	Index      string       `json:"index"`
	DocumentID string       `json:"document_id"`
	Fields     []EventField `json:"fields,omitempty"`
	// MatchField/MatchTerm select the documents a delete applies to.
	MatchField string    `json:"match_field,omitempty"`
	MatchTerm  string    `json:"match_term,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}
