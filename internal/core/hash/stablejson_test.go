package hash

import "testing"

func TestStableJSONKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": 1, "y": 2}}
	b := map[string]any{"c": map[string]any{"y": 2, "z": 1}, "a": 2, "b": 1}

	ja, err := StableJSON(a)
	if err != nil {
		t.Fatalf("StableJSON(a): %v", err)
	}
	jb, err := StableJSON(b)
	if err != nil {
		t.Fatalf("StableJSON(b): %v", err)
	}
	if string(ja) != string(jb) {
		t.Fatalf("expected identical stable encodings, got %q vs %q", ja, jb)
	}
}

func TestHashValueDeterministic(t *testing.T) {
	v := map[string]any{"version": 1, "lockHash": "abc", "fingerprint": map[string]any{"arch": "x64", "platform": "linux"}}
	h1, err := HashValue(v)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashValue(v)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestHashValueDiffersOnContentChange(t *testing.T) {
	v1 := map[string]any{"lockHash": "aaa"}
	v2 := map[string]any{"lockHash": "bbb"}
	h1, _ := HashValue(v1)
	h2, _ := HashValue(v2)
	if h1 == h2 {
		t.Fatal("expected different hashes for different content")
	}
}

func TestStableJSONNoTrailingNewline(t *testing.T) {
	b, err := StableJSON(map[string]any{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 || b[len(b)-1] == '\n' {
		t.Fatalf("unexpected trailing newline: %q", b)
	}
}
