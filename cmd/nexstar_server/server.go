package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pebbe/novas"
	"github.com/tristeng/nexstar-control/mount"
	"github.com/tristeng/nexstar-control/nexstar"
	"github.com/tristeng/nexstar-control/power"
)

type Server struct {
	// mu serializes transactions on the half-duplex hand control link.
	mu    sync.Mutex
	hc    *nexstar.HandControl
	mnt   *mount.Offset
	power *power.PDU

	place *novas.Place

	trackMu     sync.Mutex
	trackBody   string
	trackCancel context.CancelFunc

	pollInterval time.Duration

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     Status
}

// Status is the state pushed to every websocket client.
type Status struct {
	mount.Status
	Power        *power.Status `json:",omitempty"`
	TrackingBody string        `json:",omitempty"`
}

func NewServer(hc *nexstar.HandControl, cfg *Config) *Server {
	s := &Server{
		hc:           hc,
		mnt:          mount.NewOffset(hc, cfg.AzmOffset, cfg.AltOffset),
		place:        novas.NewPlace(cfg.Site.Latitude, cfg.Site.Longitude, cfg.Site.Height, cfg.Site.Temperature, cfg.Site.Pressure),
		pollInterval: cfg.pollInterval(),
	}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

// poll refreshes the broadcast status at the configured interval.
func (s *Server) poll(ctx context.Context) error {
	t := time.NewTicker(s.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		s.statusCallback(s.readStatus())
	}
}

func (s *Server) readStatus() mount.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st mount.Status
	azm, alt, err := s.mnt.GetPositionAzmAlt()
	if err != nil {
		log.Printf("reading position: %v", err)
		return st
	}
	st.Connected = true
	st.AzmPos, st.AltPos = azm, alt
	if ra, dec, err := s.hc.GetPositionRADec(); err == nil {
		st.RAPos, st.DecPos = ra, dec
	}
	if mode, err := s.hc.GetTrackingMode(); err == nil {
		st.Tracking = mode.String()
	}
	if aligned, err := s.hc.IsAligned(); err == nil {
		st.Aligned = aligned
	}
	if busy, err := s.hc.IsGotoInProgress(); err == nil {
		st.GotoInProgress = busy
	}
	return st
}

func (s *Server) statusCallback(status mount.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Status = status
	s.statusCond.Broadcast()
}

func (s *Server) powerCallback(status power.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Power = &status
	s.statusCond.Broadcast()
}

func (s *Server) setTrackingBody(body string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.TrackingBody = body
	s.statusCond.Broadcast()
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status); err != nil {
		log.Printf("encoding status: %v", err)
	}
}

// Command is a request from a websocket client.
type Command struct {
	Command  string  `json:"command"`
	Azimuth  float64 `json:"azimuth"`
	Altitude float64 `json:"altitude"`
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	Rate     int     `json:"rate"`
	Mode     int     `json:"mode"`
	Body     string  `json:"body"`
	Offset   float64 `json:"offset"`
	Enabled  bool    `json:"enabled"`
	Level    int     `json:"level"`
}

func (s *Server) handleCommand(cmd Command) error {
	switch cmd.Command {
	case "track":
		return s.track(cmd.Body)
	case "stop":
		s.track("")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mnt.SlewStop()
	case "cancel_goto":
		s.track("")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.hc.CancelGoto()
	case "goto_azm_alt":
		s.track("")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mnt.GotoAzmAlt(cmd.Azimuth, cmd.Altitude)
	case "goto_ra_dec":
		s.track("")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.hc.GotoRADec(cmd.RA, cmd.Dec)
	case "sync":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.hc.SyncRADec(cmd.RA, cmd.Dec)
	case "slew_azm":
		s.track("")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mnt.SlewAzmVariable(cmd.Rate)
	case "slew_alt":
		s.track("")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mnt.SlewAltVariable(cmd.Rate)
	case "tracking_mode":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.hc.SetTrackingMode(nexstar.TrackingMode(cmd.Mode))
	case "azm_offset":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mnt.SetAzimuthOffset(cmd.Offset)
	case "alt_offset":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mnt.SetAltitudeOffset(cmd.Offset)
	case "mount_power":
		if s.power == nil {
			return fmt.Errorf("no power unit configured")
		}
		return s.power.SetMountPower(cmd.Enabled)
	case "dew_heater":
		if s.power == nil {
			return fmt.Errorf("no power unit configured")
		}
		return s.power.SetDewHeater(cmd.Enabled)
	case "heater_level":
		if s.power == nil {
			return fmt.Errorf("no power unit configured")
		}
		return s.power.SetHeaterLevel(cmd.Level)
	}
	return fmt.Errorf("unknown command %q", cmd.Command)
}

var upgrader = websocket.Upgrader{} // use default options

// StatusSocketHandler streams status updates to the client and accepts
// Command messages in the other direction.
func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer c.Close()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("websocket read: %v", err)
				}
				return
			}
			var cmd Command
			if err := json.Unmarshal(message, &cmd); err != nil {
				log.Printf("parsing command: %v", err)
				continue
			}
			if err := s.handleCommand(cmd); err != nil {
				log.Printf("command %q: %v", cmd.Command, err)
			}
		}
	}()
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		status := s.status
		s.statusMu.RUnlock()
		err := c.WriteJSON(status)
		s.statusMu.RLock()
		if err != nil {
			return
		}
		s.statusCond.Wait()
	}
}
