package chi

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/scout/internal/domain"
)

func TestSSEWriter_EventFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	if err != nil {
		t.Fatalf("newSSEWriter: %v", err)
	}

	if err := sse.WriteEvent(domain.StageEvent(domain.StageSearching)); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := sse.WriteEvent(domain.ChunkEvent("Two providers match.")); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type: %q", ct)
	}

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), body)
	}
	if !strings.HasPrefix(frames[0], "event: stage_update\ndata: ") {
		t.Errorf("unexpected first frame: %q", frames[0])
	}
	if !strings.HasPrefix(frames[1], "event: chunk\ndata: ") {
		t.Errorf("unexpected second frame: %q", frames[1])
	}
	if !strings.Contains(frames[1], `"chunk":"Two providers match."`) {
		t.Errorf("chunk payload missing: %q", frames[1])
	}
}

func TestSSEWriter_TerminalEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	if err != nil {
		t.Fatalf("newSSEWriter: %v", err)
	}

	terminal := &domain.TerminalResult{WorkflowID: "wf-1", Status: domain.StatusNoResults, Reason: "no matching records in catalog"}
	if err := sse.WriteEvent(domain.ResultEvent(terminal)); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: result\n") {
		t.Errorf("unexpected frame: %q", body)
	}
	if !strings.Contains(body, `"status":"NO_RESULTS"`) {
		t.Errorf("terminal payload missing status: %q", body)
	}
}
