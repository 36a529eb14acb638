// Binary nexstar_sim runs a NexStar mount simulator. It listens for
// one client at a time over TCP, or with -pty it exposes a
// pseudo-terminal that software expecting a real hand control port can
// open.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/tristeng/nexstar-control/nexstar/simulator"
)

var (
	listen = flag.String("listen", "127.0.0.1:4030", "tcp listen address")
	usePty = flag.Bool("pty", false, "expose a pty instead of listening on tcp")
)

func main() {
	flag.Parse()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *usePty {
		master, slave, err := pty.Open()
		if err != nil {
			log.Fatal(err)
		}
		defer master.Close()
		defer slave.Close()
		log.Printf("hand control pty at %s", slave.Name())
		if err := simulator.Attach(master).Run(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatal(err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Printf("listening on %v", *listen)
	for ctx.Err() == nil {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("failed to accept: %v", err)
			continue
		}
		log.Printf("accepted connection from %v", conn.RemoteAddr())
		// Each client gets a fresh mount.
		if err := simulator.Attach(conn).Run(ctx); err != nil {
			log.Printf("simulator: %v", err)
		}
	}
}
