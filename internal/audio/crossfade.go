package audio

import "fmt"

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// Curve shapes a fade's progress.
type Curve int

const (
	CurveLinear Curve = iota
	CurveSmooth
)

// ParseCurve maps a config name to a Curve. Empty means linear.
func ParseCurve(name string) (Curve, error) {
	switch name {
	case "", "linear":
		return CurveLinear, nil
	case "smooth", "smoothstep":
		return CurveSmooth, nil
	}
	return CurveLinear, fmt.Errorf("unknown fade curve %q", name)
}

func (c Curve) String() string {
	if c == CurveSmooth {
		return "smooth"
	}
	return "linear"
}

// At maps progress in [0,1] through the curve.
func (c Curve) At(progress float64) float64 {
	if c == CurveSmooth {
		return Smoothstep(progress)
	}
	if progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return 1
	}
	return progress
}

// Interpolate returns the level between from and to at progress along the curve.
func (c Curve) Interpolate(from, to float32, progress float64) float32 {
	return from + (to-from)*float32(c.At(progress))
}
