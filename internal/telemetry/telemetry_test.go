package telemetry

import "testing"

func TestEncodeDefault(t *testing.T) {
	tel := Default()
	got := tel.Encode()
	want := "X-0-Y-0-BAT-100-GYR-[0.0, 0.0, 0.0]-WIND-0-DUST-0-SENS-GREEN"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeAfterFlight(t *testing.T) {
	tel := Telemetry{
		XPosition:    25,
		YPosition:    10,
		Battery:      97.3,
		Gyroscope:    [3]float64{0.1, -0.25, 0.0},
		WindSpeed:    12.5,
		DustLevel:    3.25,
		SensorStatus: SensorGreen,
	}
	got := tel.Encode()
	want := "X-25-Y-10-BAT-97.3-GYR-[0.1, -0.25, 0.0]-WIND-12.5-DUST-3.25-SENS-GREEN"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeZeroClampedBattery(t *testing.T) {
	tel := Default()
	tel.Battery = 0
	got := tel.Encode()
	want := "X-0-Y-0-BAT-0-GYR-[0.0, 0.0, 0.0]-WIND-0-DUST-0-SENS-GREEN"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeRangeClampedReadings(t *testing.T) {
	// Values pinned to either end of the [0, 100] range render bare, the
	// way an integer clamp result would.
	tel := Default()
	tel.WindSpeed = 100
	tel.DustLevel = 100
	tel.SensorStatus = SensorRed
	got := tel.Encode()
	want := "X-0-Y-0-BAT-100-GYR-[0.0, 0.0, 0.0]-WIND-100-DUST-100-SENS-RED"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeIntegralFloat(t *testing.T) {
	// A battery that lands exactly on an integer still renders as a float.
	tel := Default()
	tel.Battery = 99
	tel.WindSpeed = 65.5
	tel.SensorStatus = SensorYellow
	got := tel.Encode()
	want := "X-0-Y-0-BAT-99.0-GYR-[0.0, 0.0, 0.0]-WIND-65.5-DUST-0-SENS-YELLOW"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeNegativePositions(t *testing.T) {
	tel := Default()
	tel.XPosition = -12
	tel.YPosition = -5
	got := tel.Encode()
	want := "X--12-Y--5-BAT-100-GYR-[0.0, 0.0, 0.0]-WIND-0-DUST-0-SENS-GREEN"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}
