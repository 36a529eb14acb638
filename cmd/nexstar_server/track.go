package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pebbe/novas"
)

// trackInterval is how often the tracker recomputes the target
// ephemeris and re-aims the mount.
const trackInterval = 10 * time.Second

var bodies = map[string]func() *novas.Body{
	"sun":     novas.Sun,
	"moon":    novas.Moon,
	"mercury": novas.Mercury,
	"venus":   novas.Venus,
	"mars":    novas.Mars,
	"jupiter": novas.Jupiter,
	"saturn":  novas.Saturn,
	"uranus":  novas.Uranus,
	"neptune": novas.Neptune,
	"pluto":   novas.Pluto,
}

// track aims the mount at the named solar system body and keeps it
// there. An empty name stops the tracker. The tracker is also stopped
// by any other motion command.
func (s *Server) track(body string) error {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	if s.trackCancel != nil {
		s.trackCancel()
		s.trackCancel = nil
		s.trackBody = ""
	}
	if body == "" {
		s.setTrackingBody("")
		return nil
	}
	mk, ok := bodies[strings.ToLower(body)]
	if !ok {
		return fmt.Errorf("unknown body %q", body)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.trackCancel = cancel
	s.trackBody = body
	s.setTrackingBody(body)
	go s.trackLoop(ctx, body, mk())
	return nil
}

func (s *Server) trackLoop(ctx context.Context, name string, body *novas.Body) {
	t := time.NewTicker(trackInterval)
	defer t.Stop()
	for {
		data := body.Topo(novas.Now(), s.place, novas.REFR_NONE)
		s.mu.Lock()
		// A stop may have won the lock while this aim was pending.
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		err := s.hc.GotoRADec(data.Ra*15, data.Dec)
		s.mu.Unlock()
		if err != nil {
			log.Printf("tracking %s: %v", name, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
