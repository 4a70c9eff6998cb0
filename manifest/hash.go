package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Canonicalize parses raw as JSON and re-serializes it so that all object
// keys appear in lexicographic order, at every nesting depth. Array order
// and scalar values are untouched. Two documents that differ only in key
// order canonicalize to the same string.
//
// Numbers are decoded with json.Number so their source literals survive the
// round trip unchanged.
func Canonicalize(raw string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("parse JSON for canonicalization: %w", err)
	}
	out, err := json.Marshal(v) // map keys are marshalled in sorted order
	if err != nil {
		return "", fmt.Errorf("serialize canonical JSON: %w", err)
	}
	return string(out), nil
}

// ComputeHash returns the compose hash for a serialized app manifest and an
// image reference: SHA-256(canonical-manifest 0x00 image), hex-encoded.
// The image is mixed in so that an image bump alone forces recreation.
//
// If serialized is not valid JSON the raw string is hashed instead. That
// keeps the updater running on malformed input, but hash stability across
// equivalent-but-reordered malformed documents is then not guaranteed.
func ComputeHash(serialized, image string) string {
	normalized, err := Canonicalize(serialized)
	if err != nil {
		normalized = serialized
	}

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(image))
	return hex.EncodeToString(h.Sum(nil))
}

// TruncateAppID shortens a compose hash to the 40-hex-character application
// id the VMM uses to identify VMs.
func TruncateAppID(hash string) string {
	const appIDLen = 40
	if len(hash) <= appIDLen {
		return hash
	}
	return hash[:appIDLen]
}
