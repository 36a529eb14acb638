package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/tristeng/nexstar-control/nexstar"
)

// ListenRotctld accepts rotctld protocol connections so tools like
// gpredict and rotctl can steer the mount.
func (s *Server) ListenRotctld(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing rotctld socket")
		ln.Close()
	}()
	go func() {
		for ctx.Err() == nil {
			conn, err := ln.Accept()
			if err != nil {
				log.Printf("failed to accept: %v", err)
				continue
			}
			go s.handleRotctld(conn)
		}
	}()
	return nil
}

func (s *Server) handleRotctld(conn net.Conn) {
	defer conn.Close()
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// Two forms of command: single character, or "+\" followed by command name.
		cmd := scanner.Text()
		var args []string
		var extended bool
		if len(cmd) == 0 {
			continue
		} else if len(cmd) > 2 && cmd[0:2] == `+\` {
			extended = true
			parts := strings.Split(cmd, " ")
			cmd = parts[0][2:len(parts[0])]
			if len(parts) > 1 {
				args = parts[1:len(parts)]
			}
			fmt.Fprintf(conn, "%s:\n", cmd)
		} else {
			// Space after command is optional.
			if len(cmd) > 1 {
				args = strings.Fields(strings.TrimLeft(cmd[1:len(cmd)], " "))
			}
			cmd = string(cmd[0])
		}
		log.Printf("%v command: %q args: %#v", conn.RemoteAddr(), cmd, args)
		rprt := -1
		switch cmd {
		case "1", "dump_caps":
			fmt.Fprintf(conn, `Model name: NexStar
Mfg name: Celestron
Rot type: Az-El
Min Azimuth: -180.00
Max Azimuth: 180.00
Min Elevation: 0.00
Max Elevation: 90.00
Can set Position: Y
Can get Position: Y
Can Stop: Y
Can Park: N
Can Reset: N
Can Move: Y
Can get Info: N
`)
			rprt = 0
		case "S", "stop":
			extended = true // always print RPRT
			s.mu.Lock()
			s.track("")
			err := s.mnt.SlewStop()
			s.mu.Unlock()
			rprt = 0
			if err != nil {
				log.Printf("rotctld stop: %v", err)
				rprt = -6
			}
		case "P", "set_pos":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			az, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				rprt = -22
				break
			}
			el, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				rprt = -22
				break
			}
			s.mu.Lock()
			s.track("")
			err = s.mnt.GotoAzmAlt(az, el)
			s.mu.Unlock()
			rprt = 0
			if err != nil {
				log.Printf("rotctld set_pos: %v", err)
				rprt = -6
			}
		case "M", "move":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			dir, err := strconv.Atoi(args[0])
			if err != nil {
				rprt = -22
				break
			}
			// Speed is 0-100. One unit is 36 arcsec/sec; the drive
			// tops out at MaxSlewRate.
			speed, err := strconv.Atoi(args[1])
			if err != nil {
				rprt = -22
				break
			}
			rate := speed * 360
			if rate > nexstar.MaxSlewRate {
				rate = nexstar.MaxSlewRate
			}
			switch dir {
			case 4: // Down
				rate *= -1
				fallthrough
			case 2: // Up
				s.mu.Lock()
				s.track("")
				err = s.mnt.SlewAltVariable(rate)
				s.mu.Unlock()
				rprt = 0
			case 8: // Left
				rate *= -1
				fallthrough
			case 16: // Right
				s.mu.Lock()
				s.track("")
				err = s.mnt.SlewAzmVariable(rate)
				s.mu.Unlock()
				rprt = 0
			default:
				rprt = -22
			}
			if rprt == 0 && err != nil {
				log.Printf("rotctld move: %v", err)
				rprt = -6
			}
		case "p", "get_pos":
			s.statusMu.RLock()
			status := s.status
			s.statusMu.RUnlock()
			az := status.AzmPos
			if az > 180 {
				az -= 360
			}
			if extended {
				fmt.Fprintf(conn, "Azimuth: %.6f\nElevation: %.6f\n", az, status.AltPos)
			} else {
				fmt.Fprintf(conn, "%.6f\n%.6f\n", az, status.AltPos)
			}
			rprt = 0
		}
		if extended || rprt != 0 {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}
