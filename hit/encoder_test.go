package hit

import (
	"strings"
	"testing"

	"github.com/edgehill-data/gapush/types"
)

func TestEncodeHit_SortsKeysAscending(t *testing.T) {
	h := types.Hit{"b": "2", "a": "1"}

	if got := EncodeHit(h); got != "a=1&b=2" {
		t.Errorf("EncodeHit = %q, want %q", got, "a=1&b=2")
	}
}

func TestEncodeHit_DeterministicAcrossConstructionOrder(t *testing.T) {
	first := make(types.Hit)
	first["v"] = "1"
	first["tid"] = "UA-1"
	first["cid"] = "555"
	first["t"] = "event"

	second := make(types.Hit)
	second["t"] = "event"
	second["cid"] = "555"
	second["tid"] = "UA-1"
	second["v"] = "1"

	a, b := EncodeHit(first), EncodeHit(second)
	if a != b {
		t.Errorf("encodings differ: %q vs %q", a, b)
	}
	if a != "cid=555&t=event&tid=UA-1&v=1" {
		t.Errorf("EncodeHit = %q, want %q", a, "cid=555&t=event&tid=UA-1&v=1")
	}
}

func TestEncodeHit_EscapesReservedCharacters(t *testing.T) {
	h := types.Hit{"dp": "/home?q=a&b", "dt": "Zürich page"}

	got := EncodeHit(h)

	if strings.Contains(got, "?") || strings.Contains(got, " ") {
		t.Errorf("reserved characters not encoded: %q", got)
	}
	if got != "dp=%2Fhome%3Fq%3Da%26b&dt=Z%C3%BCrich+page" {
		t.Errorf("EncodeHit = %q", got)
	}
}

func TestEncodeBatch_JoinsWithNewline(t *testing.T) {
	b := types.Batch{
		{"a": "1"},
		{"b": "2"},
		{"c": "3"},
	}

	if got := EncodeBatch(b); got != "a=1\nb=2\nc=3" {
		t.Errorf("EncodeBatch = %q", got)
	}
}

func TestEncodeBatch_SingleHitHasNoSeparator(t *testing.T) {
	b := types.Batch{{"a": "1"}}

	if got := EncodeBatch(b); got != "a=1" {
		t.Errorf("EncodeBatch = %q, want %q", got, "a=1")
	}
}

func TestBuild_DefaultsOverlaidWithRow(t *testing.T) {
	defaults := map[string]string{
		"v":   "1",
		"tid": "UA-1",
		"t":   "event",
		"ua":  "", // empty defaults are skipped
	}
	columns := []string{"cid", "t"}
	row := []string{"555", "pageview"}

	h := Build(defaults, columns, row)

	if len(h) != 4 {
		t.Fatalf("len(hit) = %d, want 4: %v", len(h), h)
	}
	if h["t"] != "pageview" {
		t.Errorf("row value must win on collision, got t=%q", h["t"])
	}
	if h["cid"] != "555" || h["tid"] != "UA-1" || h["v"] != "1" {
		t.Errorf("unexpected hit contents: %v", h)
	}
	if _, ok := h["ua"]; ok {
		t.Error("empty default must not be included")
	}
}

func TestBuild_ShortRowIgnoresTrailingColumns(t *testing.T) {
	h := Build(nil, []string{"a", "b", "c"}, []string{"1", "2"})

	if len(h) != 2 {
		t.Fatalf("len(hit) = %d, want 2", len(h))
	}
	if _, ok := h["c"]; ok {
		t.Error("column without a value must be absent")
	}
}
