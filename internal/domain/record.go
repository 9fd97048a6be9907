package domain

// CandidateRecord is a catalog record surfaced by retrieval. At least one of
// VectorScore/TagScore is set; CombinedScore is computed during the merge.
type CandidateRecord struct {
	RecordID      string   `json:"record_id"`
	VectorScore   *float64 `json:"vector_score,omitempty"`
	TagScore      *float64 `json:"tag_score,omitempty"`
	CombinedScore float64  `json:"combined_score"`
	Snippet       string   `json:"snippet"`
}

// HasScore reports whether the candidate carries at least one branch score.
func (c CandidateRecord) HasScore() bool {
	return c.VectorScore != nil || c.TagScore != nil
}

// AdjudicatedRecord is a candidate that passed relevance adjudication.
type AdjudicatedRecord struct {
	CandidateRecord
	RelevanceScore float64 `json:"relevance_score"`
	Justification  string  `json:"justification"`
}

// Score returns a pointer to v. Convenience for optional score fields.
func Score(v float64) *float64 { return &v }
