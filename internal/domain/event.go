package domain

import "time"

// EventType discriminates the events emitted by a running workflow.
type EventType string

// Event types delivered to the caller, in order: zero or more stage updates
// and chunks, then exactly one terminal result.
const (
	EventStageUpdate EventType = "stage_update"
	EventChunk       EventType = "chunk"
	EventResult      EventType = "result"
)

// Event is one element of the caller-facing stream.
type Event struct {
	Type     EventType       `json:"type"`
	Stage    Stage           `json:"stage,omitempty"`
	Chunk    string          `json:"chunk,omitempty"`
	Terminal *TerminalResult `json:"result,omitempty"`
}

// TerminalResult is the final event payload. It is always delivered, whatever
// the terminal status; Partial and NoResults are normal outcomes, not faults.
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

// StageEvent builds a stage update event.
func StageEvent(s Stage) Event { return Event{Type: EventStageUpdate, Stage: s} }

// ChunkEvent builds a narrative chunk event.
func ChunkEvent(text string) Event { return Event{Type: EventChunk, Chunk: text} }

// ResultEvent builds the terminal event.
func ResultEvent(t *TerminalResult) Event { return Event{Type: EventResult, Terminal: t} }
