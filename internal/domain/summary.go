package domain

// Recommendation pairs a record with the reason it was recommended.
type Recommendation struct {
	RecordID  string `json:"record_id"`
	Rationale string `json:"rationale"`
}

// Statistics summarizes the workflow for the terminal result.
type Statistics struct {
	CandidateCount   int     `json:"candidate_count"`
	AdjudicatedCount int     `json:"adjudicated_count"`
	DroppedCount     int     `json:"dropped_count"`
	ScoreMin         float64 `json:"score_min"`
	ScoreMax         float64 `json:"score_max"`
	ScoreMean        float64 `json:"score_mean"`
	TokensUsed       int     `json:"tokens_used"`
}

// SummaryResult is the synthesized narrative plus ranked recommendations.
type SummaryResult struct {
	ExecutiveSummary string           `json:"executive_summary"`
	DetailedSummary  string           `json:"detailed_summary"`
	Recommendations  []Recommendation `json:"recommendations"`
	KeyInsights      []string         `json:"key_insights"`
	Statistics       Statistics       `json:"statistics"`
}

// ComputeStatistics derives score distribution stats from adjudicated records.
func ComputeStatistics(candidates []CandidateRecord, adjudicated []AdjudicatedRecord, tokensUsed int) Statistics {
	st := Statistics{
		CandidateCount:   len(candidates),
		AdjudicatedCount: len(adjudicated),
		DroppedCount:     len(candidates) - len(adjudicated),
		TokensUsed:       tokensUsed,
	}
	if len(adjudicated) == 0 {
		return st
	}
	st.ScoreMin = adjudicated[0].RelevanceScore
	st.ScoreMax = adjudicated[0].RelevanceScore
	var sum float64
	for _, a := range adjudicated {
		if a.RelevanceScore < st.ScoreMin {
			st.ScoreMin = a.RelevanceScore
		}
		if a.RelevanceScore > st.ScoreMax {
			st.ScoreMax = a.RelevanceScore
		}
		sum += a.RelevanceScore
	}
	st.ScoreMean = sum / float64(len(adjudicated))
	return st
}
