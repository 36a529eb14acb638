// Binary nexstar_server exposes a NexStar telescope mount over HTTP,
// websockets, and the rotctld protocol.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/tristeng/nexstar-control/nexstar"
	"github.com/tristeng/nexstar-control/power"
	"golang.org/x/sync/errgroup"
)

var (
	configPath    = flag.String("config", "", "path to yaml config file")
	listen        = flag.String("listen", "", "http listen address (overrides config)")
	rotctldListen = flag.String("rotctld_listen", "", "rotctld listen address (overrides config)")
	serialPort    = flag.String("serial", "", "hand control serial port (overrides config)")
	simAddr       = flag.String("sim", "", "simulator tcp address (overrides config)")
)

func main() {
	flag.Parse()
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *rotctldListen != "" {
		cfg.RotctldListen = *rotctldListen
	}
	if *serialPort != "" {
		cfg.SerialPort = *serialPort
		cfg.SimAddr = ""
	}
	if *simAddr != "" {
		cfg.SimAddr = *simAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var hc *nexstar.HandControl
	switch {
	case cfg.SimAddr != "":
		conn, err := net.Dial("tcp", cfg.SimAddr)
		if err != nil {
			log.Fatalf("connecting to simulator: %v", err)
		}
		hc = nexstar.NewConn(conn)
	case cfg.SerialPort != "":
		hc, err = nexstar.Open(cfg.SerialPort)
		if err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("one of serial_port or sim_addr is required")
	}
	defer hc.Close()

	s := NewServer(hc, cfg)

	if cfg.Power.Port != "" || cfg.Power.URL != "" {
		pdu, err := power.Connect(ctx, cfg.Power.Port, cfg.Power.Baud, cfg.Power.URL, cfg.Power.Password, s.powerCallback)
		if err != nil {
			log.Fatalf("connecting power unit: %v", err)
		}
		s.power = pdu
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.poll(ctx) })
	if cfg.RotctldListen != "" {
		if err := s.ListenRotctld(ctx, cfg.RotctldListen); err != nil {
			log.Fatal(err)
		}
	}

	r := mux.NewRouter()
	r.Handle("/api/status", http.HandlerFunc(s.StatusHandler))
	r.Handle("/ws", http.HandlerFunc(s.StatusSocketHandler))
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	srv := &http.Server{
		Handler: r,
		Addr:    cfg.Listen,
		// No write timeout; the status socket stays open.
		ReadTimeout: 15 * time.Second,
	}
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
	log.Printf("listening on %v", cfg.Listen)
	if err := g.Wait(); err != nil && err != http.ErrServerClosed && err != context.Canceled {
		log.Fatal(err)
	}
}
