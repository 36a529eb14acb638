package mount

import "math"

// EquHor converts between hour-angle/declination and azimuth/altitude.
// Phi is the observer's latitude. The transform is its own inverse, so
// the same call maps either direction. Angles are in degrees.
// Algorithm from https://metacpan.org/dist/Astro-Montenbruck/source/lib/Astro/Montenbruck/CoCo.pm
func EquHor(x, y, phi float64) (float64, float64) {
	p, q := equhorRad(deg2rad(x), deg2rad(y), deg2rad(phi))
	return rad2deg(p), rad2deg(q)
}

func equhorRad(x, y, phi float64) (float64, float64) {
	sx, sy, sphi := math.Sin(x), math.Sin(y), math.Sin(phi)
	cx, cy, cphi := math.Cos(x), math.Cos(y), math.Cos(phi)

	sq := (sy * sphi) + (cy * cphi * cx)
	q := math.Asin(sq)

	// Rounding can push the quotient just past ±1 near the meridian,
	// where Acos would return NaN.
	cp := (sy - (sphi * sq)) / (cphi * math.Cos(q))
	if cp > 1 {
		cp = 1
	} else if cp < -1 {
		cp = -1
	}
	p := math.Acos(cp)
	if sx > 0 {
		p = 2*math.Pi - p
	}
	return p, q
}

func deg2rad(x float64) float64 {
	return x * math.Pi / 180
}

func rad2deg(x float64) float64 {
	return x * 180 / math.Pi
}
