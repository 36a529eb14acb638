// Binary nexstar_shell is an interactive console for a NexStar
// telescope mount. It talks to a hand control on a serial port or to
// a simulator over TCP.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/tristeng/nexstar-control/nexstar"
)

const (
	stateKey     = "$state"
	closedPrompt = "[none] > "
)

var (
	serialPort = flag.String("serial", "", "serial port to open at startup")
	simAddr    = flag.String("sim", "", "simulator tcp address to dial at startup")
)

type state struct {
	shell *ishell.Shell
	hc    *nexstar.HandControl
}

func stateFrom(c *ishell.Context) *state {
	return c.Get(stateKey).(*state)
}

// mustBeOpen wraps command funcs that need a connected hand control.
func mustBeOpen(fn func(c *ishell.Context, hc *nexstar.HandControl)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := stateFrom(c)
		if s.hc == nil {
			c.Err(fmt.Errorf("not connected; use open PORT or connect ADDR"))
			return
		}
		fn(c, s.hc)
	}
}

func (s *state) attach(hc *nexstar.HandControl, name string) {
	if s.hc != nil {
		s.hc.Close()
	}
	s.hc = hc
	s.shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

func (s *state) detach() {
	if s.hc != nil {
		s.hc.Close()
		s.hc = nil
	}
	s.shell.SetPrompt(closedPrompt)
}

func parseFloatArg(c *ishell.Context, arg, name string) (float64, bool) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		c.Err(fmt.Errorf("invalid %s: %v", name, err))
		return 0, false
	}
	return v, true
}

func parseAxis(c *ishell.Context, arg string) (nexstar.Device, bool) {
	switch strings.ToLower(arg) {
	case "azm", "az", "ra":
		return nexstar.DeviceAzmRAMotor, true
	case "alt", "el", "dec":
		return nexstar.DeviceAltDecMotor, true
	}
	c.Err(fmt.Errorf("unknown axis %q; want azm or alt", arg))
	return 0, false
}

var trackingModes = map[string]nexstar.TrackingMode{
	"off":     nexstar.TrackingOff,
	"altaz":   nexstar.TrackingAltAz,
	"eqnorth": nexstar.TrackingEQNorth,
	"eqsouth": nexstar.TrackingEQSouth,
}

var commands = []*ishell.Cmd{
	{
		Name: "open",
		Help: "PORT -- open the hand control on a serial port",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("PORT required"))
				return
			}
			hc, err := nexstar.Open(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			stateFrom(c).attach(hc, c.Args[0])
		},
	},
	{
		Name: "connect",
		Help: "ADDR -- dial a simulator over tcp",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("ADDR required"))
				return
			}
			conn, err := net.Dial("tcp", c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			stateFrom(c).attach(nexstar.NewConn(conn), c.Args[0])
		},
	},
	{
		Name:    "close",
		Aliases: []string{"disconnect"},
		Help:    "close the connection",
		Func: func(c *ishell.Context) {
			stateFrom(c).detach()
		},
	},
	{
		Name:    "pos",
		Aliases: []string{"p"},
		Help:    "read RA/Dec and Azm/Alt",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			ra, dec, err := hc.GetPositionRADec()
			if err != nil {
				c.Err(err)
				return
			}
			azm, alt, err := hc.GetPositionAzmAlt()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("RA %10.5f  Dec %10.5f\n", ra, dec)
			c.Printf("Azm %9.5f  Alt %10.5f\n", azm, alt)
		}),
	},
	{
		Name:    "goto",
		Aliases: []string{"g"},
		Help:    "RA DEC -- slew to equatorial coordinates (degrees)",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("RA and DEC required"))
				return
			}
			ra, ok := parseFloatArg(c, c.Args[0], "RA")
			if !ok {
				return
			}
			dec, ok := parseFloatArg(c, c.Args[1], "DEC")
			if !ok {
				return
			}
			if err := hc.GotoRADec(ra, dec); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "gotoaz",
		Help: "AZM ALT -- slew to horizontal coordinates (degrees)",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("AZM and ALT required"))
				return
			}
			azm, ok := parseFloatArg(c, c.Args[0], "AZM")
			if !ok {
				return
			}
			alt, ok := parseFloatArg(c, c.Args[1], "ALT")
			if !ok {
				return
			}
			if err := hc.GotoAzmAlt(azm, alt); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "sync",
		Help: "RA DEC -- align on the object at the given coordinates",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("RA and DEC required"))
				return
			}
			ra, ok := parseFloatArg(c, c.Args[0], "RA")
			if !ok {
				return
			}
			dec, ok := parseFloatArg(c, c.Args[1], "DEC")
			if !ok {
				return
			}
			if err := hc.SyncRADec(ra, dec); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "slew",
		Help: "AXIS RATE -- variable slew in arcsec/sec (signed)",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("AXIS and RATE required"))
				return
			}
			dev, ok := parseAxis(c, c.Args[0])
			if !ok {
				return
			}
			rate, err := strconv.Atoi(c.Args[1])
			if err != nil {
				c.Err(fmt.Errorf("invalid RATE: %v", err))
				return
			}
			if err := hc.SlewVariable(dev, rate); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "fixed",
		Help: "AXIS RATE -- fixed slew at hand control rate -9..9",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("AXIS and RATE required"))
				return
			}
			dev, ok := parseAxis(c, c.Args[0])
			if !ok {
				return
			}
			rate, err := strconv.Atoi(c.Args[1])
			if err != nil {
				c.Err(fmt.Errorf("invalid RATE: %v", err))
				return
			}
			if err := hc.SlewFixed(dev, rate); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "stop",
		Help: "stop motion on both axes",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if err := hc.SlewStop(); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "cancel",
		Help: "cancel a goto in progress",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if err := hc.CancelGoto(); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "tracking",
		Help: "[off|altaz|eqnorth|eqsouth] -- get or set tracking mode",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) == 0 {
				mode, err := hc.GetTrackingMode()
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(mode)
				return
			}
			mode, ok := trackingModes[strings.ToLower(c.Args[0])]
			if !ok {
				c.Err(fmt.Errorf("unknown mode %q", c.Args[0]))
				return
			}
			if err := hc.SetTrackingMode(mode); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "location",
		Help: "[LAT LON] -- get or set the observing site (decimal degrees)",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) == 0 {
				loc, err := hc.GetLocation()
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(loc)
				return
			}
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("LAT and LON required"))
				return
			}
			lat, ok := parseFloatArg(c, c.Args[0], "LAT")
			if !ok {
				return
			}
			lon, ok := parseFloatArg(c, c.Args[1], "LON")
			if !ok {
				return
			}
			loc := nexstar.Location{
				Latitude:  nexstar.NewLatitude(lat),
				Longitude: nexstar.NewLongitude(lon),
			}
			if err := hc.SetLocation(loc); err != nil {
				c.Err(err)
			}
		}),
	},
	{
		Name: "time",
		Help: "[sync] -- read the mount clock, or set it from this host",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if len(c.Args) > 0 && c.Args[0] == "sync" {
				if err := hc.SetTime(time.Now(), false); err != nil {
					c.Err(err)
				}
				return
			}
			t, dst, err := hc.GetTime()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s (dst %v)\n", t.Format("2006-01-02 15:04:05 -0700"), dst)
		}),
	},
	{
		Name: "info",
		Help: "report versions, model, and alignment state",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			ver, err := hc.GetVersion()
			if err != nil {
				c.Err(err)
				return
			}
			model, err := hc.GetModel()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("hand control %s, model %s\n", ver, model)
			for _, dev := range []nexstar.Device{nexstar.DeviceAzmRAMotor, nexstar.DeviceAltDecMotor} {
				if v, err := hc.GetDeviceVersion(dev); err == nil {
					c.Printf("%s %s\n", dev, v)
				}
			}
			if aligned, err := hc.IsAligned(); err == nil {
				c.Printf("aligned: %v\n", aligned)
			}
			if busy, err := hc.IsGotoInProgress(); err == nil {
				c.Printf("goto in progress: %v\n", busy)
			}
		}),
	},
	{
		Name: "echo",
		Help: "round-trip a byte through the hand control",
		Func: mustBeOpen(func(c *ishell.Context, hc *nexstar.HandControl) {
			if err := hc.Echo('x'); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	},
}

func main() {
	flag.Parse()
	shell := ishell.New()
	s := &state{shell: shell}
	shell.Set(stateKey, s)
	shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}
	switch {
	case *serialPort != "":
		hc, err := nexstar.Open(*serialPort)
		if err != nil {
			log.Fatal(err)
		}
		s.attach(hc, *serialPort)
	case *simAddr != "":
		conn, err := net.Dial("tcp", *simAddr)
		if err != nil {
			log.Fatal(err)
		}
		s.attach(nexstar.NewConn(conn), *simAddr)
	}
	defer s.detach()
	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	shell.Println("NexStar mount console. Type 'help' to list commands.")
	shell.Run()
}
