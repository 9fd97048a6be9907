package redis

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestBuildTagQuery_AnyOf(t *testing.T) {
	got := buildTagQuery([]string{"plumbing", "heating"}, false)
	want := "@tags:{plumbing|heating}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildTagQuery_AllOf(t *testing.T) {
	got := buildTagQuery([]string{"plumbing", "heating"}, true)
	want := "@tags:{plumbing} @tags:{heating}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildTagQuery_EscapesSpecials(t *testing.T) {
	got := buildTagQuery([]string{"24/7 callout", "co. cork"}, false)
	want := `@tags:{24/7\ callout|co\.\ cork}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildTagQuery_SingleTag(t *testing.T) {
	if got := buildTagQuery([]string{"plumbing"}, true); got != "@tags:{plumbing}" {
		t.Errorf("got %q", got)
	}
	if got := buildTagQuery([]string{"plumbing"}, false); got != "@tags:{plumbing}" {
		t.Errorf("got %q", got)
	}
}

func TestVectorToBytes(t *testing.T) {
	vec := []float32{1.5, -0.25, 0}
	b := []byte(vectorToBytes(vec))

	if len(b) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(b))
	}
	for i, want := range vec {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if got != want {
			t.Errorf("element %d: got %g, want %g", i, got, want)
		}
	}
}
