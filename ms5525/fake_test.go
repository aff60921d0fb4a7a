package ms5525

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/b3nn0/ms5525/hal"
)

var errBus = errors.New("fake: nack")

type fakeClock struct {
	us uint64
}

func (c *fakeClock) Micros() uint64          { return c.us }
func (c *fakeClock) Millis() uint64          { return c.us / 1000 }
func (c *fakeClock) Delay(d time.Duration)   { c.advance(d) }
func (c *fakeClock) advance(d time.Duration) { c.us += uint64(d / time.Microsecond) }

// fakeDevice behaves like an MS5525: a conversion command selects which raw
// value the next ADC read returns, and reading consumes the result so a
// second read returns zero.
type fakeDevice struct {
	bus  int
	addr byte
	prom Calibration

	d1, d2  uint32
	pending byte

	failReads  bool
	failWrites int
	zeroNext   int

	writes  []byte
	retries int
	sem     sync.Mutex
	period  time.Duration
	cb      func()
	stopped bool
}

func (d *fakeDevice) Transfer(send, recv []byte) error {
	if len(recv) > 0 {
		return d.ReadRegisters(send[0], recv)
	}
	if d.failWrites > 0 {
		d.failWrites--
		return errBus
	}
	d.writes = append(d.writes, send...)
	switch send[0] {
	case CmdConvertPressure, CmdConvertTemperature:
		d.pending = send[0]
	case CmdReset:
		d.pending = 0
	}
	return nil
}

func (d *fakeDevice) ReadRegisters(reg byte, recv []byte) error {
	if d.failReads {
		return errBus
	}
	switch {
	case reg >= RegPROM && reg <= RegPROM+14:
		binary.BigEndian.PutUint16(recv, d.prom[(reg-RegPROM)/2])
	case reg == CmdADCRead:
		var v uint32
		switch {
		case d.zeroNext > 0:
			d.zeroNext--
		case d.pending == CmdConvertPressure:
			v = d.d1
			d.pending = 0
		case d.pending == CmdConvertTemperature:
			v = d.d2
			d.pending = 0
		}
		recv[0], recv[1], recv[2] = byte(v>>16), byte(v>>8), byte(v)
	default:
		return fmt.Errorf("fake: unexpected register 0x%02x", reg)
	}
	return nil
}

func (d *fakeDevice) SetRetries(n int)       { d.retries = n }
func (d *fakeDevice) Semaphore() sync.Locker { return &d.sem }
func (d *fakeDevice) Address() byte          { return d.addr }
func (d *fakeDevice) Bus() int               { return d.bus }

func (d *fakeDevice) RegisterPeriodicCallback(period time.Duration, cb func()) hal.Periodic {
	d.period = period
	d.cb = cb
	return d
}

func (d *fakeDevice) Stop() { d.stopped = true }

type fakeManager struct {
	devices map[byte]*fakeDevice
	opened  []byte
}

func (m *fakeManager) Device(bus int, addr byte) (hal.Device, error) {
	m.opened = append(m.opened, addr)
	d, ok := m.devices[addr]
	if !ok {
		return nil, hal.ErrNoBus
	}
	d.bus, d.addr = bus, addr
	return d, nil
}

type textRecorder struct {
	msgs []string
}

func (r *textRecorder) SendText(sev hal.Severity, format string, args ...any) {
	r.msgs = append(r.msgs, sev.String()+": "+fmt.Sprintf(format, args...))
}

// realistic 001DS PROM with a valid CRC nibble (0xD).
var testPROM = Calibration{0x0000, 36826, 40748, 21667, 14903, 27725, 28466, 0x010D}

const (
	testD1 = 9303947
	testD2 = 3585636

	testPressure    = 486.7894184201342
	testTemperature = 24.999988441467284
)
