package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies a pipeline stage in the workflow state machine.
type Stage string

// Workflow stages. Transitions are strictly forward; terminal short-circuits
// may jump from Searched or Adjudicated straight to a terminal status.
const (
	StageInitiated    Stage = "initiated"
	StageSearching    Stage = "searching"
	StageSearched     Stage = "searched"
	StageAdjudicating Stage = "adjudicating"
	StageAdjudicated  Stage = "adjudicated"
	StageSummarizing  Stage = "summarizing"
	StageCompleted    Stage = "completed"
)

// Status is the workflow outcome.
type Status string

// Workflow statuses. Everything except Running is terminal.
const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusNoResults Status = "NO_RESULTS"
	StatusPartial   Status = "PARTIAL"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether the status ends the workflow.
func (s Status) IsTerminal() bool { return s != StatusRunning }

// ErrorKind classifies an error entry in the workflow log.
type ErrorKind string

// Error kinds surfaced in WorkflowState.Errors.
const (
	KindPartialFailure ErrorKind = "PartialFailure"
	KindTransient      ErrorKind = "TransientProviderError"
	KindFatal          ErrorKind = "FatalConfigurationError"
)

// ErrorEntry records one absorbed or fatal error, in occurrence order.
type ErrorEntry struct {
	Stage     Stage     `json:"stage"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEntry records one stage execution in the workflow's execution log.
type LogEntry struct {
	Stage     Stage     `json:"stage"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Outcome   string    `json:"outcome"`
}

// WorkflowState is the full state of one end-to-end pipeline execution.
// It is exclusively owned by one orchestrator invocation; no concurrent
// writers.
type WorkflowState struct {
	WorkflowID   string
	SessionID    string
	Query        Query
	Stage        Stage
	Status       Status
	Candidates   []CandidateRecord
	Adjudicated  []AdjudicatedRecord
	Summary      *SummaryResult
	Degraded     bool
	Errors       []ErrorEntry
	ExecutionLog []LogEntry
	StartedAt    time.Time
	Duration     time.Duration
}

// NewWorkflow creates a workflow in the Initiated stage.
func NewWorkflow(q Query) *WorkflowState {
	return &WorkflowState{
		WorkflowID: uuid.NewString(),
		SessionID:  q.SessionID,
		Query:      q,
		Stage:      StageInitiated,
		Status:     StatusRunning,
		StartedAt:  time.Now(),
	}
}

// BeginStage advances the state machine and opens an execution log entry.
func (w *WorkflowState) BeginStage(s Stage) {
	w.Stage = s
	w.ExecutionLog = append(w.ExecutionLog, LogEntry{Stage: s, StartedAt: time.Now()})
}

// EndStage closes the most recent execution log entry with an outcome.
func (w *WorkflowState) EndStage(outcome string) {
	if n := len(w.ExecutionLog); n > 0 {
		w.ExecutionLog[n-1].EndedAt = time.Now()
		w.ExecutionLog[n-1].Outcome = outcome
	}
}

// AddError appends an error entry, preserving occurrence order.
func (w *WorkflowState) AddError(stage Stage, kind ErrorKind, msg string) {
	w.Errors = append(w.Errors, ErrorEntry{
		Stage:     stage,
		Kind:      kind,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// Finish records the terminal status and total wall-clock duration.
func (w *WorkflowState) Finish(status Status) {
	w.Status = status
	w.Duration = time.Since(w.StartedAt)
}
