package nexstar

import (
	"fmt"
	"math"
)

// Precision selects the width of the revolution encoding. The device
// chooses it per command letter, so it is threaded explicitly through
// the codec rather than held as session state.
type Precision int

const (
	// PrecisionLow is the 16-bit encoding: one revolution = 0x10000.
	PrecisionLow Precision = iota
	// PrecisionHigh is the 32-bit encoding: one revolution = 0x100000000.
	PrecisionHigh
)

func (p Precision) revolution() float64 {
	if p == PrecisionHigh {
		return 1 << 32
	}
	return 1 << 16
}

// hexDigits is the width of one encoded angle in a coordinate frame.
func (p Precision) hexDigits() int {
	if p == PrecisionHigh {
		return 8
	}
	return 4
}

// DegreesToRevolution encodes decimal degrees as an unsigned fraction of
// a revolution. Negative inputs normalize into [0, 360) first; a full
// revolution wraps to 0.
func DegreesToRevolution(deg float64, p Precision) uint32 {
	rev := p.revolution()
	frac := math.Mod(deg, 360) / 360
	if frac < 0 {
		frac++
	}
	v := uint64(math.Round(frac * rev))
	return uint32(v % uint64(rev))
}

// RevolutionToDegrees decodes a fractional-revolution value to decimal
// degrees in [0, 360).
func RevolutionToDegrees(raw uint32, p Precision) float64 {
	return 360 * float64(raw) / p.revolution()
}

// DegreesToDMS splits an angle into integer degrees, minutes and
// seconds. Degrees and minutes truncate; seconds round to the nearest
// integer, carrying into minutes and degrees so neither field reaches
// 60. The input's sign is discarded; direction flags live out of band.
func DegreesToDMS(deg float64) (d, m, s int) {
	deg = math.Abs(deg)
	d = int(deg)
	rem := (deg - float64(d)) * 60
	m = int(rem)
	s = int(math.Round((rem - float64(m)) * 60))
	if s == 60 {
		s = 0
		m++
	}
	if m == 60 {
		m = 0
		d++
	}
	return d, m, s
}

// DMSToDegrees converts degrees, minutes and seconds to decimal degrees.
func DMSToDegrees(d, m, s int) float64 {
	return float64(d) + float64(m)/60 + float64(s)/3600
}

// LatitudeDirection is the hemisphere flag in the location encoding.
type LatitudeDirection byte

const (
	North LatitudeDirection = 0
	South LatitudeDirection = 1
)

func (d LatitudeDirection) String() string {
	switch d {
	case North:
		return "N"
	case South:
		return "S"
	}
	return fmt.Sprintf("LatitudeDirection(%d)", byte(d))
}

// LongitudeDirection is the meridian-side flag in the location encoding.
type LongitudeDirection byte

const (
	East LongitudeDirection = 0
	West LongitudeDirection = 1
)

func (d LongitudeDirection) String() string {
	switch d {
	case East:
		return "E"
	case West:
		return "W"
	}
	return fmt.Sprintf("LongitudeDirection(%d)", byte(d))
}

// Latitude is a latitude in degrees, minutes and seconds with an
// explicit hemisphere. The numeric components are non-negative
// magnitudes; the sign lives only in Direction.
type Latitude struct {
	Degrees   int
	Minutes   int
	Seconds   int
	Direction LatitudeDirection
}

// NewLatitude converts signed decimal degrees (south negative) to DMS.
func NewLatitude(deg float64) Latitude {
	d, m, s := DegreesToDMS(deg)
	dir := North
	if deg < 0 {
		dir = South
	}
	return Latitude{Degrees: d, Minutes: m, Seconds: s, Direction: dir}
}

// Decimal returns signed decimal degrees, south negative.
func (l Latitude) Decimal() float64 {
	v := DMSToDegrees(l.Degrees, l.Minutes, l.Seconds)
	if l.Direction == South {
		v = -v
	}
	return v
}

func (l Latitude) String() string {
	return fmt.Sprintf("%d°%02d'%02d\" %s", l.Degrees, l.Minutes, l.Seconds, l.Direction)
}

// check returns a non-empty reason when a component cannot be encoded.
func (l Latitude) check() string {
	switch {
	case l.Direction > South:
		return "direction must be north or south"
	case l.Degrees < 0 || l.Degrees > 90:
		return "degrees span 0-90"
	case l.Minutes < 0 || l.Minutes > 59:
		return "minutes span 0-59"
	case l.Seconds < 0 || l.Seconds > 59:
		return "seconds span 0-59"
	}
	return ""
}

// Longitude is a longitude in degrees, minutes and seconds with an
// explicit side of the prime meridian.
type Longitude struct {
	Degrees   int
	Minutes   int
	Seconds   int
	Direction LongitudeDirection
}

// NewLongitude converts signed decimal degrees (west negative) to DMS.
func NewLongitude(deg float64) Longitude {
	d, m, s := DegreesToDMS(deg)
	dir := East
	if deg < 0 {
		dir = West
	}
	return Longitude{Degrees: d, Minutes: m, Seconds: s, Direction: dir}
}

// Decimal returns signed decimal degrees, west negative.
func (l Longitude) Decimal() float64 {
	v := DMSToDegrees(l.Degrees, l.Minutes, l.Seconds)
	if l.Direction == West {
		v = -v
	}
	return v
}

func (l Longitude) String() string {
	return fmt.Sprintf("%d°%02d'%02d\" %s", l.Degrees, l.Minutes, l.Seconds, l.Direction)
}

func (l Longitude) check() string {
	switch {
	case l.Direction > West:
		return "direction must be east or west"
	case l.Degrees < 0 || l.Degrees > 180:
		return "degrees span 0-180"
	case l.Minutes < 0 || l.Minutes > 59:
		return "minutes span 0-59"
	case l.Seconds < 0 || l.Seconds > 59:
		return "seconds span 0-59"
	}
	return ""
}

// Location is the observing site stored in the hand control.
type Location struct {
	Latitude  Latitude
	Longitude Longitude
}

func (l Location) String() string {
	return fmt.Sprintf("%s, %s", l.Latitude, l.Longitude)
}
