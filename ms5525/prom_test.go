package ms5525

import "testing"

func TestCRC4(t *testing.T) {
	tests := []struct {
		name string
		prom Calibration
		want uint16
	}{
		// Worked example from application note AN520.
		{"an520", Calibration{0x3132, 0x3334, 0x3536, 0x3738, 0x3940, 0x4142, 0x4344, 0x4500}, 0xB},
		{"ms5525dso", testPROM, 0xD},
		// The stored nibble and the rest of the low byte do not take part.
		{"low byte ignored", Calibration{0x3132, 0x3334, 0x3536, 0x3738, 0x3940, 0x4142, 0x4344, 0x45FF}, 0xB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC4(tt.prom); got != tt.want {
				t.Fatalf("CRC4 = 0x%x, want 0x%x", got, tt.want)
			}
		})
	}
}

func TestCalibrationValid(t *testing.T) {
	if !testPROM.Valid() {
		t.Fatalf("expected %s to be valid", testPROM)
	}
	bad := testPROM
	bad[3]++
	if bad.Valid() {
		t.Fatalf("expected corrupted table to fail the CRC")
	}
}

func TestReadPROM(t *testing.T) {
	clk := &fakeClock{}
	dev := &fakeDevice{prom: testPROM}

	cal, ok := readPROM(dev, clk)
	if !ok {
		t.Fatalf("readPROM failed")
	}
	if cal != testPROM {
		t.Fatalf("got %v, want %v", cal, testPROM)
	}
	if len(dev.writes) != 1 || dev.writes[0] != CmdReset {
		t.Fatalf("expected a single reset command, got % x", dev.writes)
	}
	if clk.us < 5000 {
		t.Fatalf("expected at least 5ms settle delay, clock at %dus", clk.us)
	}
}

func TestReadPROMAbsent(t *testing.T) {
	if _, ok := readPROM(&fakeDevice{}, &fakeClock{}); ok {
		t.Fatalf("all-zero table must read as absent")
	}
	if _, ok := readPROM(&fakeDevice{prom: testPROM, failReads: true}, &fakeClock{}); ok {
		t.Fatalf("failed register read must abort")
	}
	if _, ok := readPROM(&fakeDevice{prom: testPROM, failWrites: 1}, &fakeClock{}); ok {
		t.Fatalf("failed reset must abort")
	}
}
