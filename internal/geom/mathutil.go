package geom

import "math"

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SmoothStep remaps x in [0,1] onto an ease-in-out cubic. Values outside the
// range saturate.
func SmoothStep(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}

// InterpConstantTo moves cur toward target by at most rate*dt and never
// overshoots. A non-positive rate snaps straight to target.
func InterpConstantTo(cur, target, dt, rate float64) float64 {
	if rate <= 0 {
		return target
	}
	step := rate * dt
	if cur < target {
		return math.Min(cur+step, target)
	}
	if cur > target {
		return math.Max(cur-step, target)
	}
	return cur
}

// NormalizeDegrees maps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// NormalizeAxis maps an angle into (-180, 180].
func NormalizeAxis(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// BearingDegrees is the ground-plane angle from center to p in [0, 360).
func BearingDegrees(center, p Vec3) float64 {
	d := p.Sub(center)
	return NormalizeDegrees(math.Atan2(d[1], d[0]) * 180 / math.Pi)
}
