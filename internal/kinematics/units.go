package kinematics

import "github.com/AudomaroDuran/Ai27Simulator/internal/geom"

// Internal speeds are cm/s. One cm/s is exactly 0.036 km/h.
const (
	KmhPerInternal = 0.036
	InternalPerKmh = 1 / KmhPerInternal // ≈ 27.778

	// MaxSpeedLimit caps any configured cruising speed (720 km/h).
	MaxSpeedLimit = 20000.0
)

// InternalToKmh converts cm/s to km/h.
func InternalToKmh(v float64) float64 { return v * KmhPerInternal }

// KmhToInternal converts km/h to cm/s.
func KmhToInternal(kmh float64) float64 { return kmh * InternalPerKmh }

// ClampSpeed restricts a cruising speed to [0, MaxSpeedLimit].
func ClampSpeed(v float64) float64 { return geom.Clamp(v, 0, MaxSpeedLimit) }
