package nexstar

import (
	"fmt"
	"strconv"
	"time"
)

// checkReply verifies the payload length a command expects.
func checkReply(cmd command, payload []byte) ([]byte, error) {
	if len(payload) != cmd.replyLen {
		return nil, &ProtocolError{
			Cmd:    cmd.name,
			Raw:    payload,
			Reason: fmt.Sprintf("reply length %d, want %d", len(payload), cmd.replyLen),
		}
	}
	return payload, nil
}

// parsePosition decodes the comma-separated hex pair of a position reply.
func parsePosition(cmd command, payload []byte, p Precision) (float64, float64, error) {
	d := p.hexDigits()
	if len(payload) != positionLen(p) || payload[d] != ',' {
		return 0, 0, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "malformed position pair"}
	}
	a, err := strconv.ParseUint(string(payload[:d]), 16, 32)
	if err != nil {
		return 0, 0, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "position is not hexadecimal"}
	}
	b, err := strconv.ParseUint(string(payload[d+1:]), 16, 32)
	if err != nil {
		return 0, 0, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "position is not hexadecimal"}
	}
	return RevolutionToDegrees(uint32(a), p), RevolutionToDegrees(uint32(b), p), nil
}

// parseLocation decodes the eight DMS-plus-direction bytes of a
// location reply.
func parseLocation(cmd command, payload []byte) (Location, error) {
	loc := Location{
		Latitude: Latitude{
			Degrees:   int(payload[0]),
			Minutes:   int(payload[1]),
			Seconds:   int(payload[2]),
			Direction: LatitudeDirection(payload[3]),
		},
		Longitude: Longitude{
			Degrees:   int(payload[4]),
			Minutes:   int(payload[5]),
			Seconds:   int(payload[6]),
			Direction: LongitudeDirection(payload[7]),
		},
	}
	if r := loc.Latitude.check(); r != "" {
		return Location{}, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "latitude " + r}
	}
	if r := loc.Longitude.check(); r != "" {
		return Location{}, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "longitude " + r}
	}
	return loc, nil
}

// parseTime decodes the eight bytes of a time reply into the device's
// local time plus its daylight-saving flag.
func parseTime(cmd command, payload []byte) (time.Time, bool, error) {
	month := int(payload[3])
	day := int(payload[4])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "date out of range"}
	}
	if payload[0] > 23 || payload[1] > 59 || payload[2] > 59 {
		return time.Time{}, false, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "time of day out of range"}
	}
	// The offset byte is two's complement: values above 24 are negative.
	offset := int(payload[6])
	if offset > 24 {
		offset -= 256
	}
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600)
	t := time.Date(2000+int(payload[5]), time.Month(month), day,
		int(payload[0]), int(payload[1]), int(payload[2]), 0, zone)
	return t, payload[7] == 1, nil
}

func parseTracking(cmd command, payload []byte) (TrackingMode, error) {
	mode := TrackingMode(payload[0])
	if mode > TrackingEQSouth {
		return 0, &ProtocolError{Cmd: cmd.name, Raw: payload, Reason: "unknown tracking mode"}
	}
	return mode, nil
}

func parseVersion(payload []byte) Version {
	return Version{Major: payload[0], Minor: payload[1]}
}
