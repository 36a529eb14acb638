package mount

import "sync"

// Offset wraps a Mount with pointing corrections: offsets are added to
// reported positions and subtracted from commanded ones, so callers see
// corrected coordinates while the mount moves in its own frame.
type Offset struct {
	Mount
	mu sync.Mutex
	// last commanded position, without offsets
	azm, alt float64
	// pointing marks axes holding a commanded position
	pointingAzm, pointingAlt bool
	offsetAzm, offsetAlt     float64
}

func NewOffset(m Mount, offsetAzm, offsetAlt float64) *Offset {
	return &Offset{Mount: m, offsetAzm: offsetAzm, offsetAlt: offsetAlt}
}

// add normalizes angle+offset into [0, 360). Altitudes use the same
// wrap because the wire encoding is a full circle on both axes.
func add(angle, offset float64) float64 {
	angle += offset
	for angle >= 360 {
		angle -= 360
	}
	for angle < 0 {
		angle += 360
	}
	return angle
}

func (o *Offset) GetPositionAzmAlt() (float64, float64, error) {
	azm, alt, err := o.Mount.GetPositionAzmAlt()
	if err != nil {
		return 0, 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return add(azm, o.offsetAzm), add(alt, o.offsetAlt), nil
}

func (o *Offset) GotoAzmAlt(azm, alt float64) error {
	o.mu.Lock()
	o.azm, o.alt = azm, alt
	o.pointingAzm, o.pointingAlt = true, true
	oa, ol := o.offsetAzm, o.offsetAlt
	o.mu.Unlock()
	return o.Mount.GotoAzmAlt(add(azm, -oa), add(alt, -ol))
}

// SetAzimuthOffset changes the azimuth correction. An axis holding a
// commanded position is re-aimed so the corrected target stays put.
func (o *Offset) SetAzimuthOffset(offset float64) error {
	o.mu.Lock()
	o.offsetAzm = offset
	do := o.pointingAzm
	azm, alt := o.azm, o.alt
	ol := o.offsetAlt
	o.mu.Unlock()
	if do {
		return o.Mount.GotoAzmAlt(add(azm, -offset), add(alt, -ol))
	}
	return nil
}

func (o *Offset) SetAltitudeOffset(offset float64) error {
	o.mu.Lock()
	o.offsetAlt = offset
	do := o.pointingAlt
	azm, alt := o.azm, o.alt
	oa := o.offsetAzm
	o.mu.Unlock()
	if do {
		return o.Mount.GotoAzmAlt(add(azm, -oa), add(alt, -offset))
	}
	return nil
}

func (o *Offset) SlewAzmVariable(rate int) error {
	o.mu.Lock()
	o.pointingAzm = false
	o.mu.Unlock()
	return o.Mount.SlewAzmVariable(rate)
}

func (o *Offset) SlewAltVariable(rate int) error {
	o.mu.Lock()
	o.pointingAlt = false
	o.mu.Unlock()
	return o.Mount.SlewAltVariable(rate)
}

func (o *Offset) SlewStop() error {
	o.mu.Lock()
	o.pointingAzm, o.pointingAlt = false, false
	o.mu.Unlock()
	return o.Mount.SlewStop()
}
