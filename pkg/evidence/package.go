package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/intel"
)

// PackageTurn is a turn plus its position in the hash chain.
type PackageTurn struct {
	Sequence   int       `json:"sequence"`
	Speaker    string    `json:"speaker"`
	Transcript string    `json:"transcript"`
	Score      float64   `json:"score"`
	Level      string    `json:"level"`
	Timestamp  time.Time `json:"timestamp"`
	Hash       string    `json:"hash"`
}

// Package is the evidence bundle for one call: every stored turn, the
// entities the caller leaked, the decoy summary when one ran, and a
// hash chain so any later edit of a turn is detectable.
type Package struct {
	CallID    string         `json:"call_id"`
	CreatedAt time.Time      `json:"created_at"`
	Turns     []PackageTurn  `json:"turns"`
	Entities  []intel.Entity `json:"entities"`
	Decoy     *decoy.Summary `json:"decoy_summary,omitempty"`
	ChainHash string         `json:"chain_hash"`
}

// BuildPackage assembles the evidence package for a call. Turns must be
// in stored order; each turn's hash covers the previous hash, so the
// final ChainHash commits to the entire sequence.
func BuildPackage(callID string, turns []Turn, summary *decoy.Summary) *Package {
	pkg := &Package{
		CallID:    callID,
		CreatedAt: time.Now().UTC(),
		Turns:     make([]PackageTurn, 0, len(turns)),
		Decoy:     summary,
	}

	seen := make(map[string]bool)
	prev := chainSeed(callID)
	for _, t := range turns {
		h := turnHash(prev, &t)
		pkg.Turns = append(pkg.Turns, PackageTurn{
			Sequence:   t.Sequence,
			Speaker:    t.Speaker,
			Transcript: t.Transcript,
			Score:      t.Score,
			Level:      t.Level,
			Timestamp:  t.Timestamp,
			Hash:       h,
		})
		prev = h

		for _, e := range t.Entities {
			key := string(e.Type) + ":" + e.Value
			if !seen[key] {
				seen[key] = true
				pkg.Entities = append(pkg.Entities, e)
			}
		}
	}
	if summary != nil {
		for _, e := range summary.ExtractedEntities {
			key := string(e.Type) + ":" + e.Value
			if !seen[key] {
				seen[key] = true
				pkg.Entities = append(pkg.Entities, e)
			}
		}
	}

	pkg.ChainHash = prev
	return pkg
}

// VerifyChain recomputes the hash chain and reports whether the package
// is intact.
func VerifyChain(pkg *Package) bool {
	prev := chainSeed(pkg.CallID)
	for _, pt := range pkg.Turns {
		t := Turn{
			CallID:     pkg.CallID,
			Sequence:   pt.Sequence,
			Speaker:    pt.Speaker,
			Transcript: pt.Transcript,
			Score:      pt.Score,
			Level:      pt.Level,
			Timestamp:  pt.Timestamp,
		}
		expected := turnHash(prev, &t)
		if expected != pt.Hash {
			return false
		}
		prev = expected
	}
	return prev == pkg.ChainHash
}

func chainSeed(callID string) string {
	sum := sha256.Sum256([]byte("rakshak-evidence:" + callID))
	return hex.EncodeToString(sum[:])
}

// turnHash commits to the previous hash and the turn's stable fields.
// Entities are excluded: they are derived data, re-extractable from the
// transcript.
func turnHash(prev string, t *Turn) string {
	canonical, _ := json.Marshal(struct {
		Sequence   int    `json:"seq"`
		Speaker    string `json:"speaker"`
		Transcript string `json:"transcript"`
		Score      string `json:"score"`
		Level      string `json:"level"`
		Timestamp  int64  `json:"ts"`
	}{
		Sequence:   t.Sequence,
		Speaker:    t.Speaker,
		Transcript: t.Transcript,
		Score:      fmt.Sprintf("%.6f", t.Score),
		Level:      t.Level,
		Timestamp:  t.Timestamp.UnixNano(),
	})

	h := sha256.New()
	h.Write([]byte(prev))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}
