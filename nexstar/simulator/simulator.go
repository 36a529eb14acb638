// Package simulator answers the hand-control serial protocol over any
// byte stream, backed by a small pointing model: discrete-time motion
// toward goto targets, manual slew rates, and a rotating sky so
// equatorial coordinates drift unless tracking holds them.
package simulator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/tristeng/nexstar-control/mount"
	"github.com/tristeng/nexstar-control/nexstar"
	"golang.org/x/sync/errgroup"
)

const (
	// Maximum goto velocity in degrees/second, matching slew rate 9.
	maxVel = 4.0
	// A goto snaps to its target inside this margin, in degrees.
	snap = 0.01
	// The sky turns one revolution per sidereal day.
	siderealRate = 360 / 86164.0905
	// Discrete simulation step size
	stepSize = 25 * time.Millisecond
)

// fixedRates maps the hand control's nine rate buttons to
// degrees/second.
var fixedRates = [10]float64{0, 0.0084, 0.0167, 0.033, 0.067, 0.133, 0.267, 1, 2, 4}

type Simulator struct {
	conn io.ReadWriteCloser
	mu   sync.Mutex

	// pointing, in degrees
	azm, alt float64
	// manual slew rates, in degrees/second
	azmVel, altVel float64
	// local sidereal angle, in degrees
	lst float64

	gotoActive       bool
	gotoAzm, gotoAlt float64

	tracking byte
	// tracked equatorial target, valid while tracking holds it
	trackRA, trackDec float64

	// sync pointing corrections
	syncRA, syncDec float64

	aligned    bool
	hasGPS     bool
	model      byte
	version    [2]byte
	motorVer   [2]byte
	loc        [8]byte
	clockDelta time.Duration
	utcOffset  int
	dst        byte
}

// New returns a simulator and the client end of its byte stream.
func New() (*Simulator, net.Conn) {
	a, b := net.Pipe()
	return Attach(a), b
}

// Attach binds a simulator to an existing stream, such as a pty or an
// accepted TCP connection.
func Attach(conn io.ReadWriteCloser) *Simulator {
	return &Simulator{
		conn:     conn,
		aligned:  true,
		model:    9, // CPC
		version:  [2]byte{4, 10},
		motorVer: [2]byte{7, 11},
		// 42°21'36" N, 71°05'31" W
		loc: [8]byte{42, 21, 36, 0, 71, 5, 31, 1},
	}
}

// Run serves the stream until ctx is canceled or the peer hangs up.
// A clean disconnect returns nil.
func (s *Simulator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Closing the stream unblocks the reader.
		<-ctx.Done()
		s.conn.Close()
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(stepSize)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
			}
			s.step()
		}
	})
	g.Go(func() error {
		defer cancel()
		err := s.reader()
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// frameLen is the full length of a command frame keyed by its first
// byte, or 0 when the opcode is unknown.
func frameLen(op byte) int {
	switch op {
	case 'E', 'e', 'Z', 'z', 't', 'w', 'h', 'V', 'm', 'J', 'L', 'M':
		return 1
	case 'K', 'T':
		return 2
	case 'P':
		return 8
	case 'W', 'H':
		return 9
	case 'R', 'B', 'S':
		return 10
	case 'r', 'b', 's':
		return 18
	}
	return 0
}

func (s *Simulator) reader() error {
	r := bufio.NewReader(s.conn)
	for {
		op, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading port: %w", err)
		}
		n := frameLen(op)
		if n == 0 {
			log.Printf("unknown opcode 0x%02X", op)
			continue
		}
		frame := make([]byte, n)
		frame[0] = op
		if _, err := io.ReadFull(r, frame[1:]); err != nil {
			return fmt.Errorf("reading port: %w", err)
		}
		log.Printf("hc->sim: % X", frame)
		payload, reply := s.handle(frame)
		if !reply {
			continue
		}
		log.Printf("sim->hc: % X", payload)
		if _, err := s.conn.Write(append(payload, '#')); err != nil {
			return fmt.Errorf("writing port: %w", err)
		}
	}
}

// handle runs one command against the model. A false reply means
// silence, which the client sees as a timeout.
func (s *Simulator) handle(frame []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch frame[0] {
	case 'E', 'e':
		ra, dec := s.raDec()
		return encodePosition(ra, dec, frame[0] == 'e'), true
	case 'Z', 'z':
		return encodePosition(s.azm, s.alt, frame[0] == 'z'), true
	case 'R', 'r':
		ra, dec, err := parsePosition(frame[1:], frame[0] == 'r')
		if err != nil {
			log.Printf("goto ra/dec: %v", err)
			return nil, false
		}
		s.gotoAzm, s.gotoAlt = s.horizontal(ra, dec)
		s.gotoActive = true
		return nil, true
	case 'B', 'b':
		azm, alt, err := parsePosition(frame[1:], frame[0] == 'b')
		if err != nil {
			log.Printf("goto azm/alt: %v", err)
			return nil, false
		}
		s.gotoAzm, s.gotoAlt = azm, alt
		s.gotoActive = true
		return nil, true
	case 'S', 's':
		ra, dec, err := parsePosition(frame[1:], frame[0] == 's')
		if err != nil {
			log.Printf("sync: %v", err)
			return nil, false
		}
		geomRA, geomDec := s.geomRADec()
		s.syncRA = norm360(ra - geomRA)
		s.syncDec = dec - geomDec
		return nil, true
	case 't':
		return []byte{s.tracking}, true
	case 'T':
		s.tracking = frame[1]
		s.holdTarget()
		return nil, true
	case 'P':
		return s.handlePassthrough(frame)
	case 'w':
		loc := s.loc
		return loc[:], true
	case 'W':
		copy(s.loc[:], frame[1:])
		return nil, true
	case 'h':
		return s.timeBytes(), true
	case 'H':
		s.setClock(frame[1:])
		return nil, true
	case 'V':
		return []byte{s.version[0], s.version[1]}, true
	case 'm':
		return []byte{s.model}, true
	case 'K':
		return []byte{frame[1]}, true
	case 'J':
		if s.aligned {
			return []byte{1}, true
		}
		return []byte{0}, true
	case 'L':
		if s.gotoActive {
			return []byte{'1'}, true
		}
		return []byte{'0'}, true
	case 'M':
		s.gotoActive = false
		s.holdTarget()
		return nil, true
	}
	return nil, false
}

func (s *Simulator) handlePassthrough(frame []byte) ([]byte, bool) {
	dev := frame[2]
	switch frame[1] {
	case 1:
		if frame[3] != 254 {
			return nil, false
		}
		switch dev {
		case 16, 17:
			return []byte{s.motorVer[0], s.motorVer[1]}, true
		case 176:
			if s.hasGPS {
				return []byte{1, 0}, true
			}
		}
		// An absent device never answers.
		return nil, false
	case 3:
		rate := float64(int(frame[4])<<8|int(frame[5])) / 4 / 3600
		if frame[3] == 7 {
			rate = -rate
		}
		s.setSlew(dev, rate)
		return nil, true
	case 2:
		i := frame[4]
		if int(i) >= len(fixedRates) {
			return nil, false
		}
		rate := fixedRates[i]
		if frame[3] == 37 {
			rate = -rate
		}
		s.setSlew(dev, rate)
		return nil, true
	}
	return nil, false
}

func (s *Simulator) setSlew(dev byte, rate float64) {
	switch dev {
	case 16:
		s.azmVel = rate
	case 17:
		s.altVel = rate
	}
	// Manual motion overrides a goto.
	if rate != 0 {
		s.gotoActive = false
	}
}

func (s *Simulator) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	dt := stepSize.Seconds()
	s.lst = norm360(s.lst + siderealRate*dt)
	switch {
	case s.gotoActive:
		s.azm = approach(s.azm, s.gotoAzm, dt)
		s.alt = approach(s.alt, s.gotoAlt, dt)
		if onTarget(s.azm, s.gotoAzm) && onTarget(s.alt, s.gotoAlt) {
			s.azm, s.alt = s.gotoAzm, s.gotoAlt
			s.gotoActive = false
			s.holdTarget()
		}
	case s.azmVel != 0 || s.altVel != 0:
		s.azm = norm360(s.azm + s.azmVel*dt)
		s.alt = norm360(s.alt + s.altVel*dt)
		s.holdTarget()
	case s.tracking != 0:
		ha := norm360(s.lst - s.trackRA)
		s.azm, s.alt = mount.EquHor(ha, s.trackDec, s.latitude())
	}
}

// approach moves one axis toward a target along the short way around,
// at twice the remaining distance per second up to the maximum rate.
func approach(pos, target, dt float64) float64 {
	move := math.Remainder(target-pos, 360)
	vel := 2 * math.Abs(move)
	if vel > maxVel {
		vel = maxVel
	}
	if move < 0 {
		vel = -vel
	}
	return norm360(pos + vel*dt)
}

func onTarget(pos, target float64) bool {
	return math.Abs(math.Remainder(target-pos, 360)) < snap
}

// holdTarget captures the current equatorial pointing so tracking can
// follow it across later steps.
func (s *Simulator) holdTarget() {
	s.trackRA, s.trackDec = s.geomRADec()
}

func (s *Simulator) latitude() float64 {
	lat := float64(s.loc[0]) + float64(s.loc[1])/60 + float64(s.loc[2])/3600
	if s.loc[3] == 1 {
		lat = -lat
	}
	return lat
}

// geomRADec derives the equatorial pointing from the horizontal axes
// and the sidereal angle, before sync corrections.
func (s *Simulator) geomRADec() (float64, float64) {
	ha, dec := mount.EquHor(s.azm, s.alt, s.latitude())
	return norm360(s.lst - ha), dec
}

func (s *Simulator) raDec() (float64, float64) {
	ra, dec := s.geomRADec()
	return norm360(ra + s.syncRA), dec + s.syncDec
}

// horizontal converts a reported equatorial target back to mount axes.
func (s *Simulator) horizontal(ra, dec float64) (float64, float64) {
	geomRA := norm360(ra - s.syncRA)
	geomDec := dec - s.syncDec
	ha := norm360(s.lst - geomRA)
	return mount.EquHor(ha, geomDec, s.latitude())
}

func (s *Simulator) timeBytes() []byte {
	zone := time.FixedZone("", s.utcOffset*3600)
	t := time.Now().Add(s.clockDelta).In(zone)
	return []byte{
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
		byte(t.Month()), byte(t.Day()), byte(t.Year() - 2000),
		byte(s.utcOffset), s.dst,
	}
}

func (s *Simulator) setClock(b []byte) {
	offset := int(int8(b[6]))
	zone := time.FixedZone("", offset*3600)
	set := time.Date(2000+int(b[5]), time.Month(b[3]), int(b[4]),
		int(b[0]), int(b[1]), int(b[2]), 0, zone)
	s.clockDelta = time.Until(set)
	s.utcOffset = offset
	s.dst = b[7]
}

func norm360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func encodePosition(a, b float64, high bool) []byte {
	p := nexstar.PrecisionLow
	d := 4
	if high {
		p = nexstar.PrecisionHigh
		d = 8
	}
	return []byte(fmt.Sprintf("%0*X,%0*X", d, nexstar.DegreesToRevolution(a, p), d, nexstar.DegreesToRevolution(b, p)))
}

func parsePosition(b []byte, high bool) (float64, float64, error) {
	p := nexstar.PrecisionLow
	d := 4
	if high {
		p = nexstar.PrecisionHigh
		d = 8
	}
	if len(b) != 2*d+1 || b[d] != ',' {
		return 0, 0, fmt.Errorf("malformed position %q", b)
	}
	x, err := strconv.ParseUint(string(b[:d]), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed position %q", b)
	}
	y, err := strconv.ParseUint(string(b[d+1:]), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed position %q", b)
	}
	return nexstar.RevolutionToDegrees(uint32(x), p), nexstar.RevolutionToDegrees(uint32(y), p), nil
}
