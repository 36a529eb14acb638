// Package modbus wraps goburrow/modbus with reconnecting serial and
// remote transports sharing one client surface.
package modbus

import (
	"context"
	"log"
	"time"

	"github.com/goburrow/modbus"
	"github.com/tristeng/nexstar-control/power/modbushttp"
)

type modbusHandler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

type Client struct {
	// Port and BaudRate create a local serial connection
	Port string
	// BaudRate defaults to 19200
	BaudRate int
	SlaveId  byte
	// URL creates a remote connection through a modbushttp bridge
	URL string
	// Password authenticates to the bridge
	Password string

	// Poll is called in a loop while the connection is active; its
	// error tears the connection down for a reconnect.
	Poll func() error

	handler modbusHandler
	modbus.Client
}

func (c *Client) Connect(ctx context.Context) error {
	if c.URL != "" {
		handler := modbushttp.NewClient(c.URL)
		handler.SetPassword(c.Password)
		c.handler = handler
	} else {
		baud := c.BaudRate
		if baud == 0 {
			baud = 19200
		}
		handler := modbus.NewRTUClientHandler(c.Port)
		handler.BaudRate = baud
		handler.DataBits = 8
		handler.Parity = "N"
		handler.StopBits = 1
		handler.Timeout = 1 * time.Second
		handler.SlaveId = c.SlaveId
		c.handler = handler
	}
	c.Client = modbus.NewClient(c.handler)
	go c.reconnectLoop(ctx)
	return nil
}

func (c *Client) reconnectLoop(ctx context.Context) {
	port := c.URL
	if port == "" {
		port = c.Port
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}

		if err := c.handler.Connect(); err != nil {
			log.Printf("opening %q: %v", port, err)
			continue
		}
		if err := c.watch(ctx); err != nil {
			log.Printf("watching %q: %v", port, err)
		}
	}
}

func (c *Client) watch(ctx context.Context) error {
	defer c.handler.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Poll(); err != nil {
			return err
		}
	}
}

// WriteCoil writes one coil, translating bool to the wire's 0xFF00/0
// convention.
func (c *Client) WriteCoil(coil int, value bool) error {
	var v uint16
	if value {
		v = 0xFF00
	}
	_, err := c.WriteSingleCoil(uint16(coil), v)
	return err
}

// BytesToBits unpacks the packed bit vectors coil and discrete-input
// reads return, least significant bit first.
func BytesToBits(bs []byte) []bool {
	var out []bool
	for _, b := range bs {
		for i := 0; i < 8; i++ {
			out = append(out, (b>>uint(i)&1) == 1)
		}
	}
	return out
}
