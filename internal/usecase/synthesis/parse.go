package synthesis

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/scout/internal/domain"
)

// summaryPayload mirrors the structured block the synthesizer is instructed
// to append after the narrative.
type summaryPayload struct {
	ExecutiveSummary string `json:"executive_summary"`
	DetailedSummary  string `json:"detailed_summary"`
	Recommendations  []struct {
		RecordID  string `json:"record_id"`
		Rationale string `json:"rationale"`
	} `json:"recommendations"`
	KeyInsights []string `json:"key_insights"`
}

// BuildSummary assembles the terminal SummaryResult from the streamed
// narrative. When the structured block is missing or malformed it falls back
// to the narrative text plus ranked records; a parse problem is not a stage
// failure.
func BuildSummary(
	narrative string, records []domain.AdjudicatedRecord, maxResults int, stats domain.Statistics,
) *domain.SummaryResult {
	summary := &domain.SummaryResult{Statistics: stats}

	if payload, ok := extractPayload(narrative); ok {
		summary.ExecutiveSummary = payload.ExecutiveSummary
		summary.DetailedSummary = payload.DetailedSummary
		summary.KeyInsights = payload.KeyInsights
		for _, rec := range payload.Recommendations {
			if knownRecord(records, rec.RecordID) {
				summary.Recommendations = append(summary.Recommendations, domain.Recommendation{
					RecordID:  rec.RecordID,
					Rationale: rec.Rationale,
				})
			}
		}
	} else {
		summary.DetailedSummary = strings.TrimSpace(narrative)
	}

	if len(summary.Recommendations) == 0 {
		summary.Recommendations = FallbackRecommendations(records, maxResults)
	}
	if len(summary.Recommendations) > maxResults {
		summary.Recommendations = summary.Recommendations[:maxResults]
	}

	return summary
}

// FallbackRecommendations derives recommendations directly from the ranked
// records, using each justification as the rationale. Used when synthesis was
// skipped, failed, or produced no parseable block.
func FallbackRecommendations(records []domain.AdjudicatedRecord, maxResults int) []domain.Recommendation {
	n := len(records)
	if n > maxResults {
		n = maxResults
	}
	recs := make([]domain.Recommendation, 0, n)
	for _, r := range records[:n] {
		recs = append(recs, domain.Recommendation{
			RecordID:  r.RecordID,
			Rationale: r.Justification,
		})
	}
	return recs
}

// extractPayload finds the last JSON object in the narrative, fenced or bare.
func extractPayload(narrative string) (summaryPayload, bool) {
	var payload summaryPayload

	candidate := narrative
	if idx := strings.LastIndex(candidate, "```json"); idx >= 0 {
		candidate = candidate[idx+len("```json"):]
		if end := strings.Index(candidate, "```"); end >= 0 {
			candidate = candidate[:end]
		}
	} else if idx := strings.LastIndex(candidate, "{"); idx < 0 {
		return payload, false
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return payload, false
	}

	if err := json.Unmarshal([]byte(candidate[start:end+1]), &payload); err != nil {
		return payload, false
	}
	if payload.ExecutiveSummary == "" && payload.DetailedSummary == "" && len(payload.Recommendations) == 0 {
		return payload, false
	}
	return payload, true
}

func knownRecord(records []domain.AdjudicatedRecord, id string) bool {
	for _, r := range records {
		if r.RecordID == id {
			return true
		}
	}
	return false
}
