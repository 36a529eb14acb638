// Binary modbus_server bridges HTTP requests to a modbus serial
// device, letting nexstar_server drive a power unit plugged into
// another machine.
package main

import (
	"encoding/json"
	"flag"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/goburrow/modbus"
	"github.com/gorilla/mux"
	"github.com/tristeng/nexstar-control/power/modbushttp"
)

var (
	addr       = flag.String("addr", "127.0.0.1:8503", "address to listen on")
	password   = flag.String("password", "", "password to require on remote connections")
	serialPort = flag.String("pdu_serial", "", "power unit serial port name")
	baud       = flag.Int("pdu_baud", 19200, "power unit baud rate")
)

type Server struct {
	handler  *modbus.RTUClientHandler
	password string
}

func NewServer(port string, baud int, password string) *Server {
	handler := modbus.NewRTUClientHandler(port)
	handler.BaudRate = baud
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.Timeout = 1 * time.Second
	handler.SlaveId = 1
	return &Server{
		handler:  handler,
		password: password,
	}
}

// SendHandler relays one raw ADU to the serial bus and returns the
// reply as JSON.
func (s *Server) SendHandler(w http.ResponseWriter, r *http.Request) {
	if s.password != "" {
		_, pass, ok := r.BasicAuth()
		if !ok || pass != s.password {
			http.Error(w, "wrong password", http.StatusUnauthorized)
			return
		}
	}
	aduRequest, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	aduResponse, err := s.handler.Send(aduRequest)
	resp := modbushttp.SendResponse{ADUResponse: aduResponse}
	if err != nil {
		resp.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		log.Printf("SendHandler: %v", err)
	}
}

func main() {
	flag.Parse()
	server := NewServer(*serialPort, *baud, *password)
	r := mux.NewRouter()
	r.Handle("/api/send", http.HandlerFunc(server.SendHandler))
	r.PathPrefix("/debug").Handler(http.DefaultServeMux)
	srv := &http.Server{
		Handler:      r,
		Addr:         *addr,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	log.Printf("listening on %v", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}
