// Package power drives the observatory power distribution unit: a
// Modbus RTU device with one coil per switched outlet, discrete inputs
// sensing load, and a holding register for the dew heater level.
package power

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tristeng/nexstar-control/internal/modbus"
)

// Outlet assignments on the PDU.
const (
	coilMount  = 0
	coilHeater = 1
)

type Status struct {
	// Outlets is the switched outlet count the unit reports.
	Outlets int
	// HeaterLevel is the dew heater duty cycle, 0-100.
	HeaterLevel int

	CommandMountEnabled  bool
	CommandHeaterEnabled bool

	// Sense inputs: input 0 is the supply, then one per outlet.
	SupplyOK     bool
	MountActive  bool
	HeaterActive bool
}

type StatusCallback func(status Status)

type PDU struct {
	statusCallback StatusCallback
	mu             sync.Mutex
	client         *modbus.Client
	outlets        int
	level          int
	coils          []bool
	inputs         []bool
}

// Connect opens the PDU on a serial port, or through a modbushttp
// bridge when url is non-empty, and polls it until ctx ends.
func Connect(ctx context.Context, port string, baud int, url, password string, statusCallback StatusCallback) (*PDU, error) {
	p := &PDU{
		client: &modbus.Client{
			Port:     port,
			BaudRate: baud,
			SlaveId:  1,
			URL:      url,
			Password: password,
		},
		statusCallback: statusCallback,
	}
	p.client.Poll = p.pollOnce
	return p, p.client.Connect(ctx)
}

func (p *PDU) pollOnce() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	results, err := p.client.ReadInputRegisters(0, 1)
	if err != nil {
		return err
	}
	outlets := binary.BigEndian.Uint16(results)

	results, err = p.client.ReadHoldingRegisters(0, 1)
	if err != nil {
		return err
	}
	p.level = int(binary.BigEndian.Uint16(results))

	coils, err := p.client.ReadCoils(0, outlets)
	if err != nil {
		return err
	}
	inputs, err := p.client.ReadDiscreteInputs(0, outlets+1)
	if err != nil {
		return err
	}
	p.outlets = int(outlets)
	p.coils = modbus.BytesToBits(coils)
	p.inputs = modbus.BytesToBits(inputs)
	p.notifyStatus()
	return nil
}

func (p *PDU) notifyStatus() {
	p.statusCallback(p.parseRegisters())
}

func (p *PDU) parseRegisters() Status {
	return Status{
		Outlets:     p.outlets,
		HeaterLevel: p.level,

		CommandMountEnabled:  p.coils[coilMount],
		CommandHeaterEnabled: p.coils[coilHeater],

		SupplyOK:     p.inputs[0],
		MountActive:  p.inputs[1],
		HeaterActive: p.inputs[2],
	}
}

// SetMountPower switches the mount outlet.
func (p *PDU) SetMountPower(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client.WriteCoil(coilMount, enabled)
}

// SetDewHeater switches the dew heater outlet.
func (p *PDU) SetDewHeater(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client.WriteCoil(coilHeater, enabled)
}

// SetHeaterLevel sets the dew heater duty cycle in percent.
func (p *PDU) SetHeaterLevel(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("heater level %d out of range 0-100", level)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.client.WriteSingleRegister(0, uint16(level))
	return err
}
