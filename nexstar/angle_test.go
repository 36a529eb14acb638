package nexstar

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDegreesToRevolution(t *testing.T) {
	for _, test := range []struct {
		deg  float64
		p    Precision
		want uint32
	}{
		{0, PrecisionLow, 0x0000},
		{90, PrecisionLow, 0x4000},
		{180, PrecisionLow, 0x8000},
		{270, PrecisionLow, 0xC000},
		{360, PrecisionLow, 0x0000},
		{-90, PrecisionLow, 0xC000},
		{450, PrecisionLow, 0x4000},
		{0, PrecisionHigh, 0x00000000},
		{90, PrecisionHigh, 0x40000000},
		{180, PrecisionHigh, 0x80000000},
		{360, PrecisionHigh, 0x00000000},
		{-90, PrecisionHigh, 0xC0000000},
	} {
		if got := DegreesToRevolution(test.deg, test.p); got != test.want {
			t.Errorf("DegreesToRevolution(%v, %v): got %#X, want %#X", test.deg, test.p, got, test.want)
		}
	}
}

func TestRevolutionToDegrees(t *testing.T) {
	for _, test := range []struct {
		raw  uint32
		p    Precision
		want float64
	}{
		{0x4000, PrecisionLow, 90},
		{0x8000, PrecisionLow, 180},
		{0xC000, PrecisionLow, 270},
		{0x40000000, PrecisionHigh, 90},
		{0x80000000, PrecisionHigh, 180},
	} {
		if got := RevolutionToDegrees(test.raw, test.p); got != test.want {
			t.Errorf("RevolutionToDegrees(%#X, %v): got %v, want %v", test.raw, test.p, got, test.want)
		}
	}
}

// A decoded angle must land within one encoding step of the original,
// taken modulo a revolution.
func TestRevolutionRoundTrip(t *testing.T) {
	for _, p := range []Precision{PrecisionLow, PrecisionHigh} {
		step := 360 / p.revolution()
		for _, deg := range []float64{0, 0.004, 12.3456, 90, 179.9999, 180, 270.5, 359.9999, 360, -45, -359.9, 720.25} {
			got := RevolutionToDegrees(DegreesToRevolution(deg, p), p)
			want := math.Mod(deg, 360)
			if want < 0 {
				want += 360
			}
			diff := math.Abs(got - want)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > step {
				t.Errorf("round trip %v at %v: got %v, off by %v (step %v)", deg, p, got, diff, step)
			}
		}
	}
}

func TestDegreesToDMS(t *testing.T) {
	for _, test := range []struct {
		deg     float64
		d, m, s int
	}{
		{0, 0, 0, 0},
		{121.135, 121, 8, 6},
		{45.504167, 45, 30, 15},
		{-45.504167, 45, 30, 15},
		{59.9999999, 60, 0, 0},
		{10.9999, 11, 0, 0},
	} {
		d, m, s := DegreesToDMS(test.deg)
		if d != test.d || m != test.m || s != test.s {
			t.Errorf("DegreesToDMS(%v): got %d°%d'%d\", want %d°%d'%d\"",
				test.deg, d, m, s, test.d, test.m, test.s)
		}
	}
}

// Splitting into whole arcseconds loses at most half an arcsecond.
func TestDMSRoundTrip(t *testing.T) {
	for _, deg := range []float64{0, 0.000139, 12.34567, 45.504167, 89.99999, 121.135, 179.5} {
		d, m, s := DegreesToDMS(deg)
		got := DMSToDegrees(d, m, s)
		if diff := math.Abs(got - deg); diff > 1.0/3600 {
			t.Errorf("DMS round trip %v: got %v, off by %v arcsec", deg, got, diff*3600)
		}
	}
}

func TestNewLatitude(t *testing.T) {
	for _, test := range []struct {
		deg  float64
		want Latitude
	}{
		{45.504167, Latitude{Degrees: 45, Minutes: 30, Seconds: 15, Direction: North}},
		{-45.504167, Latitude{Degrees: 45, Minutes: 30, Seconds: 15, Direction: South}},
		{0, Latitude{}},
	} {
		if diff := cmp.Diff(NewLatitude(test.deg), test.want); diff != "" {
			t.Errorf("NewLatitude(%v): got(-)/want(+):\n%s", test.deg, diff)
		}
	}
}

func TestLatitudeDecimal(t *testing.T) {
	l := Latitude{Degrees: 45, Minutes: 30, Seconds: 15, Direction: South}
	if got := l.Decimal(); math.Abs(got-(-45.504167)) > 1e-4 {
		t.Errorf("Decimal: got %v, want about -45.504167", got)
	}
	if got, want := l.String(), `45°30'15" S`; got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}

func TestNewLongitude(t *testing.T) {
	for _, test := range []struct {
		deg  float64
		want Longitude
	}{
		{121.135, Longitude{Degrees: 121, Minutes: 8, Seconds: 6, Direction: East}},
		{-121.135, Longitude{Degrees: 121, Minutes: 8, Seconds: 6, Direction: West}},
	} {
		if diff := cmp.Diff(NewLongitude(test.deg), test.want); diff != "" {
			t.Errorf("NewLongitude(%v): got(-)/want(+):\n%s", test.deg, diff)
		}
	}
}

func TestLocationChecks(t *testing.T) {
	for _, test := range []struct {
		name string
		lat  Latitude
		ok   bool
	}{
		{"valid", Latitude{Degrees: 45, Minutes: 30, Seconds: 15, Direction: South}, true},
		{"degrees out of range", Latitude{Degrees: 91}, false},
		{"minutes out of range", Latitude{Degrees: 10, Minutes: 60}, false},
		{"seconds out of range", Latitude{Degrees: 10, Seconds: 60}, false},
		{"bad direction", Latitude{Degrees: 10, Direction: 2}, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.lat.check() == ""; got != test.ok {
				t.Errorf("check %+v: got ok=%v, want %v", test.lat, got, test.ok)
			}
		})
	}
	if lon := (Longitude{Degrees: 181}); lon.check() == "" {
		t.Error("longitude 181 passed check")
	}
	if lon := (Longitude{Degrees: 180, Direction: West}); lon.check() != "" {
		t.Errorf("longitude 180 failed check: %s", lon.check())
	}
}
