// Package risk holds the pure pull-request risk heuristics. Everything
// here is deterministic given its inputs; persistence and queueing live
// elsewhere.
package risk

import (
	"math"
	"time"
)

// Feature normalization caps and weights. A PR that touches 20+ files,
// adds and removes 1000+ lines and has been open 72+ hours scores 1.0.
const (
	filesCap     = 20.0
	additionsCap = 1000.0
	deletionsCap = 1000.0
	ageCapHours  = 72.0

	filesWeight     = 0.35
	additionsWeight = 0.25
	deletionsWeight = 0.15
	ageWeight       = 0.25
)

// Features are the size/age inputs read from a pull request's persisted
// state. Zero values are valid: missing fields contribute nothing.
type Features struct {
	FilesChanged int
	Additions    int
	Deletions    int
	CreatedAt    time.Time
}

// Score computes the risk score in [0,1], rounded to two decimals.
// Age grows with now, so rescoring an unchanged open PR can only raise
// the score until the 72h cap.
func Score(f Features, now time.Time) float64 {
	filesScore := clamp01(float64(f.FilesChanged) / filesCap)
	additionsScore := clamp01(float64(f.Additions) / additionsCap)
	deletionsScore := clamp01(float64(f.Deletions) / deletionsCap)

	var hoursOpen float64
	if !f.CreatedAt.IsZero() && now.After(f.CreatedAt) {
		hoursOpen = now.Sub(f.CreatedAt).Hours()
	}
	ageScore := clamp01(hoursOpen / ageCapHours)

	score := filesWeight*filesScore +
		additionsWeight*additionsScore +
		deletionsWeight*deletionsScore +
		ageWeight*ageScore

	return math.Round(score*100) / 100
}

// ShouldAlert reports whether a score crosses the alert threshold.
// The boundary is inclusive: scoring exactly at the threshold alerts.
func ShouldAlert(score float64, threshold float64) bool {
	return score >= threshold
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
