package nexstar

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPositionFrames(t *testing.T) {
	for _, test := range []struct {
		cmd  command
		want string
	}{
		{getRADecCmd(PrecisionLow), "E"},
		{getRADecCmd(PrecisionHigh), "e"},
		{getAzmAltCmd(PrecisionLow), "Z"},
		{getAzmAltCmd(PrecisionHigh), "z"},
		{gotoRADecCmd(PrecisionLow, 90, 180), "R4000,8000"},
		{gotoRADecCmd(PrecisionHigh, 90, 180), "r40000000,80000000"},
		{gotoAzmAltCmd(PrecisionLow, 180, 90), "B8000,4000"},
		{gotoAzmAltCmd(PrecisionHigh, 180, 90), "b80000000,40000000"},
		{syncRADecCmd(PrecisionLow, 180, 90), "S8000,4000"},
		{syncRADecCmd(PrecisionHigh, 180, 90), "s80000000,40000000"},
	} {
		if got := string(test.cmd.frame); got != test.want {
			t.Errorf("%s: frame %q, want %q", test.cmd.name, got, test.want)
		}
	}
}

func TestPositionReplyLengths(t *testing.T) {
	if got := getRADecCmd(PrecisionLow).replyLen; got != 9 {
		t.Errorf("low reply length: got %d, want 9", got)
	}
	if got := getAzmAltCmd(PrecisionHigh).replyLen; got != 17 {
		t.Errorf("high reply length: got %d, want 17", got)
	}
}

func TestSlewVariableFrame(t *testing.T) {
	for _, test := range []struct {
		dev  Device
		rate int
		want []byte
	}{
		{DeviceAzmRAMotor, 1000, []byte{'P', 3, 16, 6, 15, 160, 0, 0}},
		{DeviceAltDecMotor, -500, []byte{'P', 3, 17, 7, 7, 208, 0, 0}},
		{DeviceAzmRAMotor, 0, []byte{'P', 3, 16, 6, 0, 0, 0, 0}},
		{DeviceAzmRAMotor, MaxSlewRate, []byte{'P', 3, 16, 6, 255, 252, 0, 0}},
	} {
		cmd, err := slewVariableCmd(test.dev, test.rate)
		if err != nil {
			t.Errorf("slewVariableCmd(%v, %d): %v", test.dev, test.rate, err)
			continue
		}
		if diff := cmp.Diff(cmd.frame, test.want); diff != "" {
			t.Errorf("slewVariableCmd(%v, %d): frame got(-)/want(+):\n%s", test.dev, test.rate, diff)
		}
	}
}

func TestSlewFixedFrame(t *testing.T) {
	for _, test := range []struct {
		dev  Device
		rate int
		want []byte
	}{
		{DeviceAzmRAMotor, -5, []byte{'P', 2, 16, 37, 5, 0, 0, 0}},
		{DeviceAltDecMotor, 9, []byte{'P', 2, 17, 36, 9, 0, 0, 0}},
		{DeviceAzmRAMotor, 0, []byte{'P', 2, 16, 36, 0, 0, 0, 0}},
	} {
		cmd, err := slewFixedCmd(test.dev, test.rate)
		if err != nil {
			t.Errorf("slewFixedCmd(%v, %d): %v", test.dev, test.rate, err)
			continue
		}
		if diff := cmp.Diff(cmd.frame, test.want); diff != "" {
			t.Errorf("slewFixedCmd(%v, %d): frame got(-)/want(+):\n%s", test.dev, test.rate, diff)
		}
	}
}

func TestSlewValidation(t *testing.T) {
	for _, test := range []struct {
		name  string
		dev   Device
		rate  int
		fixed bool
	}{
		{name: "variable rate too fast", dev: DeviceAzmRAMotor, rate: MaxSlewRate + 1},
		{name: "variable rate too fast negative", dev: DeviceAltDecMotor, rate: -(MaxSlewRate + 1)},
		{name: "variable wrong device", dev: DeviceGPSUnit, rate: 100},
		{name: "fixed rate too fast", dev: DeviceAzmRAMotor, rate: 10, fixed: true},
		{name: "fixed wrong device", dev: DeviceRTC, rate: 1, fixed: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			var err error
			if test.fixed {
				_, err = slewFixedCmd(test.dev, test.rate)
			} else {
				_, err = slewVariableCmd(test.dev, test.rate)
			}
			var argErr *InvalidArgumentError
			if !errors.As(err, &argErr) {
				t.Errorf("got %v, want InvalidArgumentError", err)
			}
		})
	}
}

func TestSetTrackingFrame(t *testing.T) {
	cmd, err := setTrackingCmd(TrackingAltAz)
	if err != nil {
		t.Fatalf("setTrackingCmd: %v", err)
	}
	if diff := cmp.Diff(cmd.frame, []byte{'T', 1}); diff != "" {
		t.Errorf("frame got(-)/want(+):\n%s", diff)
	}
	if _, err := setTrackingCmd(TrackingMode(4)); err == nil {
		t.Error("mode 4 accepted")
	}
}

func TestSetLocationFrame(t *testing.T) {
	loc := Location{
		Latitude:  Latitude{Degrees: 45, Minutes: 30, Direction: South},
		Longitude: Longitude{Degrees: 120, Minutes: 45, Direction: East},
	}
	cmd, err := setLocationCmd(loc)
	if err != nil {
		t.Fatalf("setLocationCmd: %v", err)
	}
	want := []byte{'W', 45, 30, 0, 1, 120, 45, 0, 0}
	if diff := cmp.Diff(cmd.frame, want); diff != "" {
		t.Errorf("frame got(-)/want(+):\n%s", diff)
	}

	loc.Latitude.Degrees = 91
	if _, err := setLocationCmd(loc); err == nil {
		t.Error("latitude 91 accepted")
	}
}

func TestSetTimeFrame(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*3600)
	cmd, err := setTimeCmd(time.Date(2023, 5, 17, 15, 30, 45, 0, zone), true)
	if err != nil {
		t.Fatalf("setTimeCmd: %v", err)
	}
	want := []byte{'H', 15, 30, 45, 5, 17, 23, 5, 1}
	if diff := cmp.Diff(cmd.frame, want); diff != "" {
		t.Errorf("frame got(-)/want(+):\n%s", diff)
	}
}

func TestSetTimeNegativeOffset(t *testing.T) {
	zone := time.FixedZone("UTC-7", -7*3600)
	cmd, err := setTimeCmd(time.Date(2023, 5, 17, 15, 30, 45, 0, zone), false)
	if err != nil {
		t.Fatalf("setTimeCmd: %v", err)
	}
	// -7 travels as its two's-complement byte.
	if got := cmd.frame[7]; got != 249 {
		t.Errorf("offset byte: got %d, want 249", got)
	}
	if got := cmd.frame[8]; got != 0 {
		t.Errorf("dst byte: got %d, want 0", got)
	}
}

func TestSetTimeValidation(t *testing.T) {
	for _, test := range []struct {
		name string
		t    time.Time
	}{
		{"year before 2000", time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"year after 2255", time.Date(2256, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"fractional offset", time.Date(2023, 5, 17, 15, 30, 45, 0, time.FixedZone("UTC+5:30", 5*3600+1800))},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := setTimeCmd(test.t, false)
			var argErr *InvalidArgumentError
			if !errors.As(err, &argErr) {
				t.Errorf("got %v, want InvalidArgumentError", err)
			}
		})
	}
}

func TestPassthroughFrames(t *testing.T) {
	if diff := cmp.Diff(getDeviceVersionCmd(DeviceAzmRAMotor).frame, []byte{'P', 1, 16, 254, 0, 0, 0, 2}); diff != "" {
		t.Errorf("device version frame got(-)/want(+):\n%s", diff)
	}
	if diff := cmp.Diff(echoCmd('x').frame, []byte{'K', 'x'}); diff != "" {
		t.Errorf("echo frame got(-)/want(+):\n%s", diff)
	}
}
