package scout

import (
	"time"

	"github.com/kailas-cloud/scout/internal/domain"
)

// Query describes one search. At least one of Text/Tags must be set; both
// together run the hybrid path with weighted score fusion.
type Query struct {
	Text          string
	Tags          []string
	MatchAllTags  bool
	MaxResults    int
	MinSimilarity float64
	SessionID     string
}

// EventType discriminates the events on the stream returned by Search.
type EventType string

// Event types, in delivery order: zero or more stage updates and chunks,
// then exactly one terminal result.
const (
	EventStageUpdate EventType = "stage_update"
	EventChunk       EventType = "chunk"
	EventResult      EventType = "result"
)

// Stage identifies a workflow pipeline stage.
type Stage string

// Workflow stages, in execution order.
const (
	StageInitiated    Stage = "initiated"
	StageSearching    Stage = "searching"
	StageSearched     Stage = "searched"
	StageAdjudicating Stage = "adjudicating"
	StageAdjudicated  Stage = "adjudicated"
	StageSummarizing  Stage = "summarizing"
	StageCompleted    Stage = "completed"
)

// Status is the workflow outcome carried by the terminal result.
type Status string

// Workflow statuses. Partial and NoResults are normal outcomes, not faults.
const (
	StatusCompleted Status = "COMPLETED"
	StatusNoResults Status = "NO_RESULTS"
	StatusPartial   Status = "PARTIAL"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Event is one element of the search event stream.
type Event struct {
	Type     EventType       `json:"type"`
	Stage    Stage           `json:"stage,omitempty"`
	Chunk    string          `json:"chunk,omitempty"`
	Terminal *TerminalResult `json:"result,omitempty"`
}

// TerminalResult is the final event payload, delivered exactly once whatever
// the outcome.
type TerminalResult struct {
	WorkflowID      string              `json:"workflow_id"`
	Status          Status              `json:"status"`
	Reason          string              `json:"reason,omitempty"`
	Summary         *SummaryResult      `json:"summary,omitempty"`
	Recommendations []Recommendation    `json:"recommendations,omitempty"`
	Adjudicated     []AdjudicatedRecord `json:"adjudicated,omitempty"`
	Errors          []ErrorEntry        `json:"errors,omitempty"`
	Duration        time.Duration       `json:"duration_ns"`
}

// CandidateRecord is a catalog record surfaced by retrieval. At least one of
// VectorScore/TagScore is set.
type CandidateRecord struct {
	RecordID      string   `json:"record_id"`
	VectorScore   *float64 `json:"vector_score,omitempty"`
	TagScore      *float64 `json:"tag_score,omitempty"`
	CombinedScore float64  `json:"combined_score"`
	Snippet       string   `json:"snippet"`
}

// AdjudicatedRecord is a candidate that passed relevance adjudication.
type AdjudicatedRecord struct {
	CandidateRecord
	RelevanceScore float64 `json:"relevance_score"`
	Justification  string  `json:"justification"`
}

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

// ErrorEntry records one absorbed or fatal error, in occurrence order.
type ErrorEntry struct {
	Stage     Stage     `json:"stage"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// convertEvents republishes workflow events in their exported shape,
// preserving order and the cap-1 backpressure of the source channel.
func convertEvents(in <-chan domain.Event) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		for ev := range in {
			out <- Event{
				Type:     EventType(ev.Type),
				Stage:    Stage(ev.Stage),
				Chunk:    ev.Chunk,
				Terminal: convertTerminal(ev.Terminal),
			}
		}
	}()
	return out
}

func convertTerminal(t *domain.TerminalResult) *TerminalResult {
	if t == nil {
		return nil
	}
	out := &TerminalResult{
		WorkflowID:      t.WorkflowID,
		Status:          Status(t.Status),
		Reason:          t.Reason,
		Summary:         convertSummary(t.Summary),
		Recommendations: convertRecommendations(t.Recommendations),
		Duration:        t.Duration,
	}
	for _, a := range t.Adjudicated {
		out.Adjudicated = append(out.Adjudicated, convertAdjudicated(a))
	}
	for _, e := range t.Errors {
		out.Errors = append(out.Errors, ErrorEntry{
			Stage:     Stage(e.Stage),
			Kind:      string(e.Kind),
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	}
	return out
}

func convertSummary(s *domain.SummaryResult) *SummaryResult {
	if s == nil {
		return nil
	}
	return &SummaryResult{
		ExecutiveSummary: s.ExecutiveSummary,
		DetailedSummary:  s.DetailedSummary,
		Recommendations:  convertRecommendations(s.Recommendations),
		KeyInsights:      s.KeyInsights,
		Statistics: Statistics{
			CandidateCount:   s.Statistics.CandidateCount,
			AdjudicatedCount: s.Statistics.AdjudicatedCount,
			DroppedCount:     s.Statistics.DroppedCount,
			ScoreMin:         s.Statistics.ScoreMin,
			ScoreMax:         s.Statistics.ScoreMax,
			ScoreMean:        s.Statistics.ScoreMean,
			TokensUsed:       s.Statistics.TokensUsed,
		},
	}
}

func convertRecommendations(in []domain.Recommendation) []Recommendation {
	if in == nil {
		return nil
	}
	out := make([]Recommendation, len(in))
	for i, r := range in {
		out[i] = Recommendation{RecordID: r.RecordID, Rationale: r.Rationale}
	}
	return out
}

func convertAdjudicated(a domain.AdjudicatedRecord) AdjudicatedRecord {
	return AdjudicatedRecord{
		CandidateRecord: CandidateRecord{
			RecordID:      a.RecordID,
			VectorScore:   a.VectorScore,
			TagScore:      a.TagScore,
			CombinedScore: a.CombinedScore,
			Snippet:       a.Snippet,
		},
		RelevanceScore: a.RelevanceScore,
		Justification:  a.Justification,
	}
}
