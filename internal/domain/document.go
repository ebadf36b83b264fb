package domain

// Document is the normalized text+metadata form of a transaction record,
// derived deterministically by the chatbot normalizer and regenerated on
// every re-index. It is never mutated in place.
type Document struct {
	Text string
	Meta Metadata
}

// Metadata carries the structured fields alongside the document text.
// Amount is a plain float64 and Date a string: the vector index only
// accepts primitive metadata types, so coercion happens when the
// document is built, not at insert time.
type Metadata struct {
	UserID         string
	SourceRecordID string
	Type           RecordType
	Amount         float64
	Date           string
	Category       string // expenses only, lower-cased for matching
	Name           string // expense name or income source
	Status         string
}
