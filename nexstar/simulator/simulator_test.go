package simulator_test

import (
	"context"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"github.com/tristeng/nexstar-control/nexstar"
	"github.com/tristeng/nexstar-control/nexstar/simulator"
)

func startSim(t *testing.T) *nexstar.HandControl {
	sim, conn := simulator.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sim.Run(ctx)
	hc := nexstar.NewConn(conn)
	hc.SetTimeout(500 * time.Millisecond)
	t.Cleanup(func() { hc.Close() })
	return hc
}

func waitGoto(t *testing.T, hc *nexstar.HandControl) {
	deadline := time.Now().Add(10 * time.Second)
	for {
		busy, err := hc.IsGotoInProgress()
		require.NoError(t, err)
		if !busy {
			return
		}
		require.True(t, time.Now().Before(deadline), "goto did not finish")
		time.Sleep(50 * time.Millisecond)
	}
}

func TestEcho(t *testing.T) {
	hc := startSim(t)
	require.NoError(t, hc.Echo('q'))
	require.True(t, hc.IsConnected())
}

func TestIdentity(t *testing.T) {
	hc := startSim(t)

	v, err := hc.GetVersion()
	require.NoError(t, err)
	require.Equal(t, nexstar.Version{Major: 4, Minor: 10}, v)

	model, err := hc.GetModel()
	require.NoError(t, err)
	require.Equal(t, nexstar.ModelCPC, model)

	mv, err := hc.GetDeviceVersion(nexstar.DeviceAzmRAMotor)
	require.NoError(t, err)
	require.Equal(t, nexstar.Version{Major: 7, Minor: 11}, mv)

	aligned, err := hc.IsAligned()
	require.NoError(t, err)
	require.True(t, aligned)
}

// A device that never answers reads as absent, not as an error.
func TestDevicePresent(t *testing.T) {
	hc := startSim(t)

	present, err := hc.DevicePresent(nexstar.DeviceAltDecMotor)
	require.NoError(t, err)
	require.True(t, present)

	present, err = hc.DevicePresent(nexstar.DeviceGPSUnit)
	require.NoError(t, err)
	require.False(t, present)
}

func TestGotoAzmAlt(t *testing.T) {
	hc := startSim(t)
	require.NoError(t, hc.GotoAzmAltPrecise(0.2, 359.9))
	waitGoto(t, hc)
	azm, alt, err := hc.GetPositionAzmAltPrecise()
	require.NoError(t, err)
	require.InDelta(t, 0.2, azm, 0.02)
	require.InDelta(t, 359.9, alt, 0.02)
}

func TestCancelGoto(t *testing.T) {
	hc := startSim(t)
	require.NoError(t, hc.GotoAzmAltPrecise(90, 0))
	busy, err := hc.IsGotoInProgress()
	require.NoError(t, err)
	require.True(t, busy)

	require.NoError(t, hc.CancelGoto())
	busy, err = hc.IsGotoInProgress()
	require.NoError(t, err)
	require.False(t, busy)
}

// Sync re-labels the current pointing; a read straight after reports
// the synced coordinates.
func TestSync(t *testing.T) {
	hc := startSim(t)
	require.NoError(t, hc.SyncRADecPrecise(100, 20))
	ra, dec, err := hc.GetPositionRADecPrecise()
	require.NoError(t, err)
	require.InDelta(t, 100, ra, 0.01)
	require.InDelta(t, 20, dec, 0.01)
}

// With tracking off the sky turns out from under the mount; with
// alt-az tracking the mount follows and right ascension holds.
func TestTrackingHoldsRA(t *testing.T) {
	hc := startSim(t)

	require.NoError(t, hc.SetTrackingMode(nexstar.TrackingOff))
	ra1, _, err := hc.GetPositionRADecPrecise()
	require.NoError(t, err)
	time.Sleep(time.Second)
	ra2, _, err := hc.GetPositionRADecPrecise()
	require.NoError(t, err)
	require.True(t, angleDiff(ra2, ra1) > 0.002, "ra did not drift with tracking off")

	require.NoError(t, hc.SetTrackingMode(nexstar.TrackingAltAz))
	mode, err := hc.GetTrackingMode()
	require.NoError(t, err)
	require.Equal(t, nexstar.TrackingAltAz, mode)
	ra1, _, err = hc.GetPositionRADecPrecise()
	require.NoError(t, err)
	time.Sleep(time.Second)
	ra2, _, err = hc.GetPositionRADecPrecise()
	require.NoError(t, err)
	require.True(t, angleDiff(ra2, ra1) < 0.001, "ra drifted while tracking")
}

func angleDiff(a, b float64) float64 {
	d := a - b
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	if d < 0 {
		d = -d
	}
	return d
}

func TestLocationRoundTrip(t *testing.T) {
	hc := startSim(t)
	want := nexstar.Location{
		Latitude:  nexstar.Latitude{Degrees: 48, Minutes: 46, Seconds: 48, Direction: nexstar.North},
		Longitude: nexstar.Longitude{Degrees: 120, Minutes: 46, Seconds: 48, Direction: nexstar.West},
	}
	require.NoError(t, hc.SetLocation(want))
	got, err := hc.GetLocation()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestTimeRoundTrip(t *testing.T) {
	hc := startSim(t)
	zone := time.FixedZone("UTC-7", -7*3600)
	set := time.Date(2023, 5, 17, 15, 30, 45, 0, zone)
	require.NoError(t, hc.SetTime(set, true))

	got, dst, err := hc.GetTime()
	require.NoError(t, err)
	require.True(t, dst)
	_, offset := got.Zone()
	require.Equal(t, -7*3600, offset)
	require.InDelta(t, 0, got.Sub(set).Seconds(), 2)
}

// The simulator attached to a pty looks like a real serial device.
func TestPty(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	sim := simulator.Attach(master)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sim.Run(ctx)

	hc, err := nexstar.Open(slave.Name())
	require.NoError(t, err)
	t.Cleanup(func() { hc.Close() })

	model, err := hc.GetModel()
	require.NoError(t, err)
	require.Equal(t, nexstar.ModelCPC, model)
}
