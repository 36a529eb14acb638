// Package nexstar speaks the Celestron NexStar hand-control serial
// protocol: typed coordinate, tracking, slewing, time and location
// operations over a half-duplex 9600-baud line, one blocking
// request/response transaction per call.
package nexstar

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/tarm/serial"
)

// TrackingMode selects how the mount compensates for Earth's rotation.
type TrackingMode byte

const (
	TrackingOff     TrackingMode = 0
	TrackingAltAz   TrackingMode = 1
	TrackingEQNorth TrackingMode = 2
	TrackingEQSouth TrackingMode = 3
)

func (m TrackingMode) String() string {
	switch m {
	case TrackingOff:
		return "off"
	case TrackingAltAz:
		return "alt-az"
	case TrackingEQNorth:
		return "eq-north"
	case TrackingEQSouth:
		return "eq-south"
	}
	return fmt.Sprintf("TrackingMode(%d)", byte(m))
}

// Device identifies a motor or accessory behind the hand control.
type Device byte

const (
	DeviceAzmRAMotor  Device = 16
	DeviceAltDecMotor Device = 17
	DeviceGPSUnit     Device = 176
	DeviceRTC         Device = 178
)

func (d Device) String() string {
	switch d {
	case DeviceAzmRAMotor:
		return "azm/ra motor"
	case DeviceAltDecMotor:
		return "alt/dec motor"
	case DeviceGPSUnit:
		return "gps unit"
	case DeviceRTC:
		return "rtc"
	}
	return fmt.Sprintf("Device(%d)", byte(d))
}

// Model identifies the mount the hand control reports.
type Model byte

const (
	ModelGPSSeries  Model = 1
	ModelISeries    Model = 3
	ModelISeriesSE  Model = 4
	ModelCGE        Model = 5
	ModelAdvancedGT Model = 6
	ModelSLT        Model = 7
	ModelCPC        Model = 9
	ModelGT         Model = 10
	ModelSE45       Model = 11
	ModelSE68       Model = 12
)

func (m Model) String() string {
	switch m {
	case ModelGPSSeries:
		return "GPS Series"
	case ModelISeries:
		return "i-Series"
	case ModelISeriesSE:
		return "i-Series SE"
	case ModelCGE:
		return "CGE"
	case ModelAdvancedGT:
		return "Advanced GT"
	case ModelSLT:
		return "SLT"
	case ModelCPC:
		return "CPC"
	case ModelGT:
		return "GT"
	case ModelSE45:
		return "NexStar 4/5 SE"
	case ModelSE68:
		return "NexStar 6/8 SE"
	}
	return fmt.Sprintf("Model(%d)", byte(m))
}

// Version is a firmware version reported as two bytes.
type Version struct {
	Major, Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is at or beyond the given version.
func (v Version) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// HandControl drives one hand control over an exclusively owned Port.
// Calls block for the duration of their transaction and must not be
// made concurrently; callers needing that serialize externally. Closing
// while a call is in flight surfaces as an IOError on that call.
type HandControl struct {
	port    Port
	timeout time.Duration

	// version caches the firmware version used for precision selection.
	version *Version
}

// New wraps an already open Port. The caller keeps responsibility for
// the port's settings (9600 8N1 for a real line).
func New(port Port) *HandControl {
	return &HandControl{port: port, timeout: DefaultTimeout}
}

// NewConn wraps a net.Conn, such as a TCP serial bridge or the
// simulator's pipe end.
func NewConn(conn net.Conn) *HandControl {
	return New(PortFromConn(conn))
}

// Open opens the named serial port at the hand control's fixed settings,
// discards any pending bytes and probes the link with an echo.
func Open(name string) (*HandControl, error) {
	c := &serial.Config{Name: name, Baud: Baud, ReadTimeout: 250 * time.Millisecond}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("nexstar: %w", &IOError{Op: fmt.Sprintf("open %q", name), Err: err})
	}
	hc := New(p)
	if err := p.Flush(); err != nil {
		p.Close()
		return nil, fmt.Errorf("nexstar: %w", &IOError{Op: fmt.Sprintf("flush %q", name), Err: err})
	}
	if err := hc.Echo('x'); err != nil {
		p.Close()
		return nil, err
	}
	return hc, nil
}

// SetTimeout adjusts the per-transaction idle deadline.
func (hc *HandControl) SetTimeout(d time.Duration) {
	hc.timeout = d
}

// Close releases the port. Further operations fail with ErrClosed.
func (hc *HandControl) Close() error {
	if hc.port == nil {
		return nil
	}
	err := hc.port.Close()
	hc.port = nil
	hc.version = nil
	if err != nil {
		return fmt.Errorf("nexstar: %w", &IOError{Op: "close", Err: err})
	}
	return nil
}

// transact runs one exchange and wraps failures with the command name.
func (hc *HandControl) transact(cmd command) ([]byte, error) {
	payload, err := hc.exchange(cmd)
	if err != nil {
		return nil, fmt.Errorf("nexstar: %s: %w", cmd.name, err)
	}
	return payload, nil
}

// do runs a command whose reply carries no payload.
func (hc *HandControl) do(cmd command) error {
	_, err := hc.transact(cmd)
	return err
}

// doByte runs a command whose reply is a single byte.
func (hc *HandControl) doByte(cmd command) (byte, error) {
	payload, err := hc.transact(cmd)
	if err != nil {
		return 0, err
	}
	return payload[0], nil
}

// position runs a coordinate query and decodes its hex pair.
func (hc *HandControl) position(cmd command, p Precision) (float64, float64, error) {
	payload, err := hc.exchange(cmd)
	var a, b float64
	if err == nil {
		a, b, err = parsePosition(cmd, payload, p)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("nexstar: %s: %w", cmd.name, err)
	}
	return a, b, nil
}

// argErr wraps a builder's validation failure.
func argErr(err error) error {
	return fmt.Errorf("nexstar: %w", err)
}

// firmware returns the hand control version, querying it once and
// caching the answer for the life of the connection.
func (hc *HandControl) firmware() (Version, error) {
	if hc.version != nil {
		return *hc.version, nil
	}
	v, err := hc.GetVersion()
	if err != nil {
		return Version{}, err
	}
	hc.version = &v
	return v, nil
}

// Firmware capability gates for the high-precision command variants.
func (hc *HandControl) precisionRADec() (Precision, error) {
	v, err := hc.firmware()
	if err != nil {
		return PrecisionLow, err
	}
	if v.AtLeast(1, 6) {
		return PrecisionHigh, nil
	}
	return PrecisionLow, nil
}

func (hc *HandControl) precisionAzmAlt() (Precision, error) {
	v, err := hc.firmware()
	if err != nil {
		return PrecisionLow, err
	}
	if v.AtLeast(2, 2) {
		return PrecisionHigh, nil
	}
	return PrecisionLow, nil
}

func (hc *HandControl) precisionSync() (Precision, error) {
	v, err := hc.firmware()
	if err != nil {
		return PrecisionLow, err
	}
	if v.AtLeast(4, 10) {
		return PrecisionHigh, nil
	}
	return PrecisionLow, nil
}

// warnUnaligned logs when a goto is issued before alignment. The query
// is best effort; its failure never fails the goto.
func (hc *HandControl) warnUnaligned(op string) {
	aligned, err := hc.IsAligned()
	if err == nil && !aligned {
		log.Printf("nexstar: %s: mount is not aligned; pointing may be inaccurate", op)
	}
}

// GetPositionRADec reads right ascension and declination in decimal
// degrees, at the highest precision the firmware supports.
func (hc *HandControl) GetPositionRADec() (ra, dec float64, err error) {
	p, err := hc.precisionRADec()
	if err != nil {
		return 0, 0, err
	}
	return hc.position(getRADecCmd(p), p)
}

// GetPositionRADecPrecise reads right ascension and declination using
// the 32-bit encoding regardless of firmware version.
func (hc *HandControl) GetPositionRADecPrecise() (ra, dec float64, err error) {
	return hc.position(getRADecCmd(PrecisionHigh), PrecisionHigh)
}

// GetPositionAzmAlt reads azimuth and altitude in decimal degrees, at
// the highest precision the firmware supports.
func (hc *HandControl) GetPositionAzmAlt() (azm, alt float64, err error) {
	p, err := hc.precisionAzmAlt()
	if err != nil {
		return 0, 0, err
	}
	return hc.position(getAzmAltCmd(p), p)
}

// GetPositionAzmAltPrecise reads azimuth and altitude using the 32-bit
// encoding regardless of firmware version.
func (hc *HandControl) GetPositionAzmAltPrecise() (azm, alt float64, err error) {
	return hc.position(getAzmAltCmd(PrecisionHigh), PrecisionHigh)
}

// GotoRADec slews to the given right ascension and declination in
// decimal degrees. The mount must be aligned for the pointing to mean
// anything; an unaligned mount is reported in the log and the goto is
// issued anyway, matching the hand control's own behavior.
func (hc *HandControl) GotoRADec(ra, dec float64) error {
	p, err := hc.precisionRADec()
	if err != nil {
		return err
	}
	hc.warnUnaligned("goto ra/dec")
	return hc.do(gotoRADecCmd(p, ra, dec))
}

// GotoRADecPrecise slews using the 32-bit encoding.
func (hc *HandControl) GotoRADecPrecise(ra, dec float64) error {
	hc.warnUnaligned("goto ra/dec")
	return hc.do(gotoRADecCmd(PrecisionHigh, ra, dec))
}

// GotoAzmAlt slews to the given azimuth and altitude in decimal degrees.
func (hc *HandControl) GotoAzmAlt(azm, alt float64) error {
	p, err := hc.precisionAzmAlt()
	if err != nil {
		return err
	}
	hc.warnUnaligned("goto azm/alt")
	return hc.do(gotoAzmAltCmd(p, azm, alt))
}

// GotoAzmAltPrecise slews using the 32-bit encoding.
func (hc *HandControl) GotoAzmAltPrecise(azm, alt float64) error {
	hc.warnUnaligned("goto azm/alt")
	return hc.do(gotoAzmAltCmd(PrecisionHigh, azm, alt))
}

// SyncRADec tells the mount its current pointing matches the given
// right ascension and declination, at the highest precision the
// firmware supports. Sync needs hand control 4.10 or later.
func (hc *HandControl) SyncRADec(ra, dec float64) error {
	p, err := hc.precisionSync()
	if err != nil {
		return err
	}
	return hc.do(syncRADecCmd(p, ra, dec))
}

// SyncRADecPrecise syncs using the 32-bit encoding.
func (hc *HandControl) SyncRADecPrecise(ra, dec float64) error {
	return hc.do(syncRADecCmd(PrecisionHigh, ra, dec))
}

// GetTrackingMode reads the mount's tracking mode.
func (hc *HandControl) GetTrackingMode() (TrackingMode, error) {
	cmd := getTrackingCmd()
	payload, err := hc.exchange(cmd)
	var mode TrackingMode
	if err == nil {
		mode, err = parseTracking(cmd, payload)
	}
	if err != nil {
		return 0, fmt.Errorf("nexstar: %s: %w", cmd.name, err)
	}
	return mode, nil
}

// SetTrackingMode sets the mount's tracking mode.
func (hc *HandControl) SetTrackingMode(mode TrackingMode) error {
	cmd, err := setTrackingCmd(mode)
	if err != nil {
		return argErr(err)
	}
	return hc.do(cmd)
}

// SlewVariable slews one axis at a rate in arcseconds per second,
// signed for direction. |rate| must not exceed MaxSlewRate.
func (hc *HandControl) SlewVariable(dev Device, rate int) error {
	cmd, err := slewVariableCmd(dev, rate)
	if err != nil {
		return argErr(err)
	}
	return hc.do(cmd)
}

// SlewFixed slews one axis at one of the hand control's discrete rates,
// -9..9, signed for direction. Rate 0 stops the axis.
func (hc *HandControl) SlewFixed(dev Device, rate int) error {
	cmd, err := slewFixedCmd(dev, rate)
	if err != nil {
		return argErr(err)
	}
	return hc.do(cmd)
}

// SlewAzmVariable slews the azimuth/RA axis at a variable rate.
func (hc *HandControl) SlewAzmVariable(rate int) error {
	return hc.SlewVariable(DeviceAzmRAMotor, rate)
}

// SlewAltVariable slews the altitude/declination axis at a variable rate.
func (hc *HandControl) SlewAltVariable(rate int) error {
	return hc.SlewVariable(DeviceAltDecMotor, rate)
}

// SlewStop halts motion on both axes.
func (hc *HandControl) SlewStop() error {
	for _, dev := range []Device{DeviceAzmRAMotor, DeviceAltDecMotor} {
		cmd, err := slewFixedCmd(dev, 0)
		if err != nil {
			return argErr(err)
		}
		if err := hc.do(cmd); err != nil {
			return err
		}
	}
	return nil
}

// GetLocation reads the observing site stored in the hand control.
func (hc *HandControl) GetLocation() (Location, error) {
	cmd := getLocationCmd()
	payload, err := hc.exchange(cmd)
	var loc Location
	if err == nil {
		loc, err = parseLocation(cmd, payload)
	}
	if err != nil {
		return Location{}, fmt.Errorf("nexstar: %s: %w", cmd.name, err)
	}
	return loc, nil
}

// SetLocation stores the observing site in the hand control.
func (hc *HandControl) SetLocation(loc Location) error {
	cmd, err := setLocationCmd(loc)
	if err != nil {
		return argErr(err)
	}
	return hc.do(cmd)
}

// GetTime reads the hand control's local time and daylight-saving flag.
// The returned time carries its GMT offset as a fixed zone.
func (hc *HandControl) GetTime() (time.Time, bool, error) {
	cmd := getTimeCmd()
	payload, err := hc.exchange(cmd)
	var t time.Time
	var dst bool
	if err == nil {
		t, dst, err = parseTime(cmd, payload)
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("nexstar: %s: %w", cmd.name, err)
	}
	return t, dst, nil
}

// SetTime sets the hand control's clock from t's wall time and zone
// offset, with dst stored as the daylight-saving flag. The offset must
// be a whole number of hours.
func (hc *HandControl) SetTime(t time.Time, dst bool) error {
	cmd, err := setTimeCmd(t, dst)
	if err != nil {
		return argErr(err)
	}
	return hc.do(cmd)
}

// GetVersion reads the hand control's firmware version.
func (hc *HandControl) GetVersion() (Version, error) {
	payload, err := hc.transact(getVersionCmd())
	if err != nil {
		return Version{}, err
	}
	return parseVersion(payload), nil
}

// GetDeviceVersion reads the firmware version of a motor or accessory
// behind the hand control.
func (hc *HandControl) GetDeviceVersion(dev Device) (Version, error) {
	payload, err := hc.transact(getDeviceVersionCmd(dev))
	if err != nil {
		return Version{}, err
	}
	return parseVersion(payload), nil
}

// GetModel reads the mount model.
func (hc *HandControl) GetModel() (Model, error) {
	b, err := hc.doByte(getModelCmd())
	if err != nil {
		return 0, err
	}
	return Model(b), nil
}

// Echo round-trips one byte through the hand control.
func (hc *HandControl) Echo(b byte) error {
	cmd := echoCmd(b)
	got, err := hc.doByte(cmd)
	if err != nil {
		return err
	}
	if got != b {
		return fmt.Errorf("nexstar: %s: %w", cmd.name, &ProtocolError{
			Cmd:    cmd.name,
			Raw:    []byte{got},
			Reason: fmt.Sprintf("echoed 0x%02X, want 0x%02X", got, b),
		})
	}
	return nil
}

// IsConnected probes the link with an echo. It never returns an error;
// any failure reads as false.
func (hc *HandControl) IsConnected() bool {
	return hc.Echo('x') == nil
}

// IsAligned reports whether the mount has completed alignment.
func (hc *HandControl) IsAligned() (bool, error) {
	b, err := hc.doByte(alignedCmd())
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

// IsGotoInProgress reports whether a goto is still running.
func (hc *HandControl) IsGotoInProgress() (bool, error) {
	b, err := hc.doByte(gotoInProgressCmd())
	if err != nil {
		return false, err
	}
	return b == '1', nil
}

// CancelGoto aborts a goto in progress.
func (hc *HandControl) CancelGoto() error {
	return hc.do(cancelGotoCmd())
}

// DevicePresent probes a device with a version query. A timeout means
// the device is absent; other failures propagate.
func (hc *HandControl) DevicePresent(dev Device) (bool, error) {
	_, err := hc.GetDeviceVersion(dev)
	if errors.Is(err, ErrTimeout) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
