package vocabulary

import "github.com/kgraph/kgraph/internal/config"

// Zone is the qualitative size band of the active vocabulary, reported by
// the API's vocabulary status response (spec §4.4).
type Zone string

const (
	ZoneOptimal  Zone = "OPTIMAL"
	ZoneMixed    Zone = "MIXED"
	ZoneTooLarge Zone = "TOO_LARGE"
	ZoneCritical Zone = "CRITICAL"
)

// zoneFor computes the zone for N active types using the configured
// boundaries (defaults 90/120/200, per spec §4.4: OPTIMAL 30<=N<=90, MIXED
// 90<N<=120, TOO_LARGE 120<N<=200, CRITICAL N>200).
func zoneFor(n int, cfg config.VocabularyConfig) Zone {
	switch {
	case n <= cfg.ZoneOptimalMax:
		return ZoneOptimal
	case n <= cfg.ZoneMixedMax:
		return ZoneMixed
	case n <= cfg.ZoneTooLargeMax:
		return ZoneTooLarge
	default:
		return ZoneCritical
	}
}
