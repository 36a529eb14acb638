package nexstar

import (
	"fmt"
	"time"
)

// terminator ends every device response.
const terminator = '#'

// MaxSlewRate is the largest variable slew rate, in arcseconds per
// second, the wire format can carry: the rate travels as a 16-bit count
// of quarter arcseconds.
const MaxSlewRate = 16383

// command pairs one outgoing frame with the reply shape it expects.
// Constructors validate arguments, so a command that reaches the port
// is always encodable.
type command struct {
	// name appears in errors.
	name string
	// frame is written to the port in a single call.
	frame []byte
	// replyLen is the payload length expected before the terminator.
	replyLen int
}

// encodePosition renders two angles as the comma-separated uppercase
// hex pair the coordinate commands carry.
func encodePosition(a, b float64, p Precision) []byte {
	d := p.hexDigits()
	return []byte(fmt.Sprintf("%0*X,%0*X", d, DegreesToRevolution(a, p), d, DegreesToRevolution(b, p)))
}

// positionLen is the payload length of a position reply.
func positionLen(p Precision) int {
	return 2*p.hexDigits() + 1
}

func coordLetter(low, high byte, p Precision) byte {
	if p == PrecisionHigh {
		return high
	}
	return low
}

func getRADecCmd(p Precision) command {
	return command{name: "get ra/dec", frame: []byte{coordLetter('E', 'e', p)}, replyLen: positionLen(p)}
}

func getAzmAltCmd(p Precision) command {
	return command{name: "get azm/alt", frame: []byte{coordLetter('Z', 'z', p)}, replyLen: positionLen(p)}
}

func gotoRADecCmd(p Precision, ra, dec float64) command {
	return command{
		name:  "goto ra/dec",
		frame: append([]byte{coordLetter('R', 'r', p)}, encodePosition(ra, dec, p)...),
	}
}

func gotoAzmAltCmd(p Precision, azm, alt float64) command {
	return command{
		name:  "goto azm/alt",
		frame: append([]byte{coordLetter('B', 'b', p)}, encodePosition(azm, alt, p)...),
	}
}

func syncRADecCmd(p Precision, ra, dec float64) command {
	return command{
		name:  "sync ra/dec",
		frame: append([]byte{coordLetter('S', 's', p)}, encodePosition(ra, dec, p)...),
	}
}

func getTrackingCmd() command {
	return command{name: "get tracking mode", frame: []byte{'t'}, replyLen: 1}
}

func setTrackingCmd(mode TrackingMode) (command, error) {
	if mode > TrackingEQSouth {
		return command{}, &InvalidArgumentError{Arg: "tracking mode", Value: byte(mode), Reason: "modes span 0-3"}
	}
	return command{name: "set tracking mode", frame: []byte{'T', byte(mode)}}, nil
}

// slewDevice rejects targets that are not motor axes.
func slewDevice(dev Device) error {
	if dev != DeviceAzmRAMotor && dev != DeviceAltDecMotor {
		return &InvalidArgumentError{Arg: "device", Value: dev, Reason: "not a motor axis"}
	}
	return nil
}

func slewVariableCmd(dev Device, rate int) (command, error) {
	if err := slewDevice(dev); err != nil {
		return command{}, err
	}
	if rate > MaxSlewRate || rate < -MaxSlewRate {
		return command{}, &InvalidArgumentError{
			Arg:    "slew rate",
			Value:  rate,
			Reason: fmt.Sprintf("magnitude above %d arcsec/sec", MaxSlewRate),
		}
	}
	dir := byte(6)
	if rate < 0 {
		dir = 7
		rate = -rate
	}
	v := rate * 4
	return command{
		name:  "variable slew",
		frame: []byte{'P', 3, byte(dev), dir, byte(v >> 8), byte(v), 0, 0},
	}, nil
}

func slewFixedCmd(dev Device, rate int) (command, error) {
	if err := slewDevice(dev); err != nil {
		return command{}, err
	}
	if rate > 9 || rate < -9 {
		return command{}, &InvalidArgumentError{Arg: "slew rate", Value: rate, Reason: "fixed rates span -9..9"}
	}
	dir := byte(36)
	if rate < 0 {
		dir = 37
		rate = -rate
	}
	return command{
		name:  "fixed slew",
		frame: []byte{'P', 2, byte(dev), dir, byte(rate), 0, 0, 0},
	}, nil
}

func getLocationCmd() command {
	return command{name: "get location", frame: []byte{'w'}, replyLen: 8}
}

func setLocationCmd(loc Location) (command, error) {
	if r := loc.Latitude.check(); r != "" {
		return command{}, &InvalidArgumentError{Arg: "latitude", Value: loc.Latitude, Reason: r}
	}
	if r := loc.Longitude.check(); r != "" {
		return command{}, &InvalidArgumentError{Arg: "longitude", Value: loc.Longitude, Reason: r}
	}
	lat, lon := loc.Latitude, loc.Longitude
	return command{
		name: "set location",
		frame: []byte{'W',
			byte(lat.Degrees), byte(lat.Minutes), byte(lat.Seconds), byte(lat.Direction),
			byte(lon.Degrees), byte(lon.Minutes), byte(lon.Seconds), byte(lon.Direction)},
	}, nil
}

func getTimeCmd() command {
	return command{name: "get time", frame: []byte{'h'}, replyLen: 8}
}

func setTimeCmd(t time.Time, dst bool) (command, error) {
	if t.Year() < 2000 || t.Year() > 2255 {
		return command{}, &InvalidArgumentError{Arg: "year", Value: t.Year(), Reason: "device years span 2000-2255"}
	}
	_, offsetSec := t.Zone()
	if offsetSec%3600 != 0 {
		return command{}, &InvalidArgumentError{Arg: "utc offset", Value: t.Format("-07:00"), Reason: "whole hours only"}
	}
	offset := offsetSec / 3600
	if offset < -24 || offset > 24 {
		return command{}, &InvalidArgumentError{Arg: "utc offset", Value: offset, Reason: "offsets span -24..24"}
	}
	var dstByte byte
	if dst {
		dstByte = 1
	}
	return command{
		name: "set time",
		frame: []byte{'H',
			byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
			byte(t.Month()), byte(t.Day()), byte(t.Year() - 2000),
			byte(offset), dstByte},
	}, nil
}

func getVersionCmd() command {
	return command{name: "get version", frame: []byte{'V'}, replyLen: 2}
}

func getDeviceVersionCmd(dev Device) command {
	return command{
		name:     "get device version",
		frame:    []byte{'P', 1, byte(dev), 254, 0, 0, 0, 2},
		replyLen: 2,
	}
}

func getModelCmd() command {
	return command{name: "get model", frame: []byte{'m'}, replyLen: 1}
}

func echoCmd(b byte) command {
	return command{name: "echo", frame: []byte{'K', b}, replyLen: 1}
}

func alignedCmd() command {
	return command{name: "alignment complete", frame: []byte{'J'}, replyLen: 1}
}

func gotoInProgressCmd() command {
	return command{name: "goto in progress", frame: []byte{'L'}, replyLen: 1}
}

func cancelGotoCmd() command {
	return command{name: "cancel goto", frame: []byte{'M'}}
}
