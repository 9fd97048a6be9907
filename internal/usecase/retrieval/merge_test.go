package retrieval

import (
	"math"
	"testing"

	"github.com/kailas-cloud/scout/internal/domain"
)

func vecCandidate(id string, score float64) domain.CandidateRecord {
	return domain.CandidateRecord{RecordID: id, VectorScore: domain.Score(score), Snippet: "snippet " + id}
}

func tagCandidate(id string, score float64) domain.CandidateRecord {
	return domain.CandidateRecord{RecordID: id, TagScore: domain.Score(score), Snippet: "snippet " + id}
}

func TestMerge_WeightedFusion(t *testing.T) {
	vector := []domain.CandidateRecord{vecCandidate("a", 0.8)}
	tag := []domain.CandidateRecord{tagCandidate("a", 0.5)}

	merged := merge(vector, tag, 0.6, 10)

	if len(merged) != 1 {
		t.Fatalf("expected 1 record, got %d", len(merged))
	}
	want := 0.6*0.8 + 0.4*0.5
	if math.Abs(merged[0].CombinedScore-want) > 1e-9 {
		t.Errorf("expected combined %g, got %g", want, merged[0].CombinedScore)
	}
	if merged[0].VectorScore == nil || merged[0].TagScore == nil {
		t.Error("merged record must keep both branch scores")
	}
}

func TestMerge_SingleBranchKeepsOwnScore(t *testing.T) {
	vector := []domain.CandidateRecord{vecCandidate("a", 0.8)}
	tag := []domain.CandidateRecord{tagCandidate("b", 0.5)}

	merged := merge(vector, tag, 0.6, 10)

	if len(merged) != 2 {
		t.Fatalf("expected 2 records, got %d", len(merged))
	}
	scores := map[string]float64{}
	for _, c := range merged {
		scores[c.RecordID] = c.CombinedScore
	}
	if scores["a"] != 0.8 {
		t.Errorf("vector-only record should keep 0.8, got %g", scores["a"])
	}
	if scores["b"] != 0.5 {
		t.Errorf("tag-only record should keep 0.5, got %g", scores["b"])
	}
}

func TestMerge_DeterministicTieBreak(t *testing.T) {
	vector := []domain.CandidateRecord{
		vecCandidate("zeta", 0.7),
		vecCandidate("alpha", 0.7),
		vecCandidate("mid", 0.7),
	}

	merged := merge(vector, nil, 0.6, 10)

	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if merged[i].RecordID != id {
			t.Fatalf("position %d: expected %q, got %q", i, id, merged[i].RecordID)
		}
	}
}

func TestMerge_TruncatesToMaxResults(t *testing.T) {
	vector := []domain.CandidateRecord{
		vecCandidate("a", 0.9),
		vecCandidate("b", 0.8),
		vecCandidate("c", 0.7),
		vecCandidate("d", 0.6),
	}

	merged := merge(vector, nil, 0.6, 2)

	if len(merged) != 2 {
		t.Fatalf("expected 2 records, got %d", len(merged))
	}
	if merged[0].RecordID != "a" || merged[1].RecordID != "b" {
		t.Errorf("expected top two by score, got %q, %q", merged[0].RecordID, merged[1].RecordID)
	}
}

func TestMerge_SnippetBackfill(t *testing.T) {
	vector := []domain.CandidateRecord{{RecordID: "a", VectorScore: domain.Score(0.8)}}
	tag := []domain.CandidateRecord{{RecordID: "a", TagScore: domain.Score(0.5), Snippet: "from tag branch"}}

	merged := merge(vector, tag, 0.6, 10)

	if merged[0].Snippet != "from tag branch" {
		t.Errorf("expected snippet backfilled from the tag branch, got %q", merged[0].Snippet)
	}
}
