// Package mount declares the motion surfaces a telescope mount exposes,
// independent of the protocol driving it.
package mount

// Mount is the horizontal motion surface shared by hand controls and
// simulators. Slew rates are in arcseconds per second, signed for
// direction.
type Mount interface {
	GetPositionAzmAlt() (azm, alt float64, err error)
	GotoAzmAlt(azm, alt float64) error
	SlewAzmVariable(rate int) error
	SlewAltVariable(rate int) error
	SlewStop() error
}

// Celestial is the equatorial surface of an aligned mount.
type Celestial interface {
	GetPositionRADec() (ra, dec float64, err error)
	GotoRADec(ra, dec float64) error
	SyncRADec(ra, dec float64) error
}

// GotoPoller reports whether a commanded slew is still converging.
type GotoPoller interface {
	IsGotoInProgress() (bool, error)
	CancelGoto() error
}

// Offsetter adjusts pointing corrections on a wrapped mount.
type Offsetter interface {
	SetAzimuthOffset(offset float64) error
	SetAltitudeOffset(offset float64) error
}

// Status is one snapshot of a mount's state.
type Status struct {
	Connected      bool
	AzmPos, AltPos float64
	RAPos, DecPos  float64
	Tracking       string
	Aligned        bool
	GotoInProgress bool
}

type StatusCallback func(status Status)
