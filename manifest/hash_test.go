package manifest

import (
	"strings"
	"testing"
)

func TestCanonicalizeKeyOrderIndependent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{
			name: "flat object",
			a:    `{"b":1,"a":2}`,
			b:    `{"a":2,"b":1}`,
		},
		{
			name: "nested objects",
			a:    `{"outer":{"z":true,"a":"x"},"list":[1,2,3]}`,
			b:    `{"list":[1,2,3],"outer":{"a":"x","z":true}}`,
		},
		{
			name: "objects inside arrays",
			a:    `[{"k":"v","j":"w"},{"b":2,"a":1}]`,
			b:    `[{"j":"w","k":"v"},{"a":1,"b":2}]`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ca, err := Canonicalize(tc.a)
			if err != nil {
				t.Fatalf("canonicalize a: %v", err)
			}
			cb, err := Canonicalize(tc.b)
			if err != nil {
				t.Fatalf("canonicalize b: %v", err)
			}
			if ca != cb {
				t.Fatalf("canonical forms differ:\n  a: %s\n  b: %s", ca, cb)
			}
		})
	}
}

func TestCanonicalizePreservesArrayOrder(t *testing.T) {
	ca, err := Canonicalize(`{"list":[3,1,2]}`)
	if err != nil {
		t.Fatal(err)
	}
	if ca != `{"list":[3,1,2]}` {
		t.Fatalf("array order changed: %s", ca)
	}
}

func TestCanonicalizePreservesNumberLiterals(t *testing.T) {
	ca, err := Canonicalize(`{"mem":16384,"frac":0.5}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ca, "16384") || !strings.Contains(ca, "0.5") {
		t.Fatalf("number literals mangled: %s", ca)
	}
}

func TestCanonicalizeRejectsMalformed(t *testing.T) {
	if _, err := Canonicalize(`{"unterminated":`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestComputeHashKeyOrderIndependent(t *testing.T) {
	h1 := ComputeHash(`{"b":1,"a":2}`, "dstack-0.5.2")
	h2 := ComputeHash(`{"a":2,"b":1}`, "dstack-0.5.2")
	if h1 != h2 {
		t.Fatalf("hashes differ for equivalent manifests: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestComputeHashSensitivity(t *testing.T) {
	base := ComputeHash(`{"a":1}`, "dstack-0.5.2")

	if got := ComputeHash(`{"a":2}`, "dstack-0.5.2"); got == base {
		t.Fatal("content change did not change hash")
	}
	if got := ComputeHash(`{"a":1}`, "dstack-0.5.3"); got == base {
		t.Fatal("image change alone did not change hash")
	}
}

func TestComputeHashMalformedFallsBackToRaw(t *testing.T) {
	// Malformed input hashes the raw bytes: stable for identical input,
	// but different spacing means a different hash.
	h1 := ComputeHash(`not json`, "img")
	h2 := ComputeHash(`not json`, "img")
	h3 := ComputeHash(`not  json`, "img")
	if h1 != h2 {
		t.Fatal("fallback hash not deterministic")
	}
	if h1 == h3 {
		t.Fatal("distinct malformed inputs should hash differently")
	}
}

func TestTruncateAppID(t *testing.T) {
	long := strings.Repeat("ab", 32)
	if got := TruncateAppID(long); len(got) != 40 || got != long[:40] {
		t.Fatalf("unexpected truncation: %s", got)
	}
	if got := TruncateAppID("short"); got != "short" {
		t.Fatalf("short hash should pass through, got %s", got)
	}
}
