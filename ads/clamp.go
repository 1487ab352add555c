// Package ads tracks the advertising budget for a live session and fires
// warned ad breaks when the streamer falls behind quota. The budget is
// derived on demand from the session's ad events; nothing here persists its
// own state beyond the ledger rows.
package ads

// allowedDurations is the discrete set of ad lengths Twitch accepts, ascending.
var allowedDurations = [...]int{30, 60, 90, 120, 150, 180}

// Clamp returns the largest allowed ad duration that is <= seconds, with the
// smallest allowed value as an absolute floor. Every path that starts a
// commercial goes through this; the ledger never stores a length the platform
// would reject.
func Clamp(seconds int) int {
	clamped := allowedDurations[0]
	for _, v := range allowedDurations {
		if v <= seconds {
			clamped = v
		}
	}
	return clamped
}

// MaxDuration is the longest single ad break the platform accepts.
func MaxDuration() int { return allowedDurations[len(allowedDurations)-1] }
