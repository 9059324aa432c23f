// Package score holds the pure scoring primitives used by lead intake
// and the matching engine. Nothing here touches the store or fails:
// unknown inputs degrade (nil distance, zero similarity) instead of
// returning errors.
package score

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"github.com/skillloop/skillloop-server/internal/model"
)

// Fingerprint returns the duplicate-detection hash for a contact
// triple. Email and name are trimmed and lowercased, phone is reduced
// to its digits, and the normalized fields are joined with "|" before
// hashing. Identical normalized triples always collide; that is the
// point, it is a fuzzy dedup key, not an identity.
func Fingerprint(email, phone, name string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	n := strings.ToLower(strings.TrimSpace(name))
	var p strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			p.WriteRune(r)
		}
	}
	norm := e + "|" + p.String() + "|" + n
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// LeadScore computes the lead quality score in [0,1], rounded to three
// decimals: 0.5*fit + 0.3*intent + 0.2*recency. Recency is a constant
// 1.0 for now (see DESIGN.md); a time-decay factor was never finished
// upstream and we keep the documented behavior.
func LeadScore(e *model.Entity) float64 {
	fit := math.Min(1, float64(len(e.WantsToLearn))/3)

	intent := 0.4
	switch {
	case e.Intent.RequestedDemo:
		intent = 1.0
	case e.Intent.ClickedPricing:
		intent = 0.8
	}

	const recency = 1.0

	s := 0.5*fit + 0.3*intent + 0.2*recency
	return math.Round(s*1000) / 1000
}

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two points, or
// nil when either point is absent so callers can treat distance as
// unknown rather than zero.
func HaversineKm(a, b *model.GeoPoint) *float64 {
	if a == nil || b == nil {
		return nil
	}
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	d := earthRadiusKm * c
	return &d
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// OverlapMinutes sums the pairwise overlap of same-day slots. O(|a|*|b|),
// symmetric in its arguments.
func OverlapMinutes(a, b []model.Slot) int {
	total := 0
	for _, sa := range a {
		for _, sb := range b {
			if sa.Day != sb.Day {
				continue
			}
			start := max(sa.StartMin, sb.StartMin)
			end := min(sa.EndMin, sb.EndMin)
			if end > start {
				total += end - start
			}
		}
	}
	return total
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the distinct elements of the
// two slices. Defined as 0 when both are empty.
func Jaccard(a, b []string) float64 {
	sa := make(map[string]struct{}, len(a))
	for _, x := range a {
		sa[x] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, x := range b {
		sb[x] = struct{}{}
	}
	inter := 0
	for x := range sa {
		if _, ok := sb[x]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
