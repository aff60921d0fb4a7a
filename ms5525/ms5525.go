package ms5525

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/b3nn0/ms5525/hal"
)

var (
	ErrNotFound = errors.New("ms5525: no sensor found")
	ErrStale    = errors.New("ms5525: no recent sample")
)

// Config selects where to look for the sensor and how hard to try.
// Zero fields take defaults.
type Config struct {
	Bus      int
	Address  byte // AddressAuto, Address1 or Address2
	Instance int  // only used to tell sensors apart in messages

	ProbeRetries int // transfer retries while probing, default 5
	RunRetries   int // transfer retries once running, default 2
	Rate         int // conversion callback rate in Hz, default 80

	// StrictChecksum rejects a PROM whose CRC does not match. By default a
	// mismatch is only reported and the table is used anyway.
	StrictChecksum bool

	Text hal.TextSink
}

func (c *Config) setDefaults() {
	if c.ProbeRetries <= 0 {
		c.ProbeRetries = 5
	}
	if c.RunRetries <= 0 {
		c.RunRetries = 2
	}
	if c.Rate <= 0 {
		c.Rate = 80
	}
	if c.Text == nil {
		c.Text = hal.LogSink{Prefix: "MS5525"}
	}
}

func (c *Config) candidates() []byte {
	if c.Address != AddressAuto {
		return []byte{c.Address}
	}
	return []byte{Address1, Address2}
}

// Sensor is a running MS5525. Conversions are driven from a periodic
// callback on the bus device; Pressure and Temperature may be called from
// any goroutine.
type Sensor struct {
	cfg   Config
	dev   hal.Device
	clock hal.Clock
	cal   Calibration
	timer hal.Periodic

	// Conversion state. Only the periodic callback touches it after Probe.
	phase      uint8
	cmdSent    byte
	cmdSentUs  uint64
	ignoreNext bool
	d1, d2     uint32

	mu  sync.Mutex
	acc accumulator

	ticks         atomic.Uint64
	samples       atomic.Uint64
	zeroReads     atomic.Uint64
	readFailures  atomic.Uint64
	writeFailures atomic.Uint64
}

type accumulator struct {
	pressureSum    float64
	pressCount     uint32
	temperatureSum float64
	tempCount      uint32
	lastSampleMs   uint64
	haveSample     bool

	pressure    float64
	temperature float64
}

// Stats is a snapshot of the conversion counters.
type Stats struct {
	Ticks         uint64
	Samples       uint64
	ZeroReads     uint64
	ReadFailures  uint64
	WriteFailures uint64
	CRCValid      bool
}

// Probe looks for an MS5525 at the configured address(es), loads its
// calibration and starts the conversion cycle.
func Probe(mgr hal.Manager, clock hal.Clock, cfg Config) (*Sensor, error) {
	cfg.setDefaults()
	s := &Sensor{cfg: cfg, clock: clock}

	for _, addr := range cfg.candidates() {
		dev, err := mgr.Device(cfg.Bus, addr)
		if err != nil {
			continue
		}
		if s.load(dev) {
			s.dev = dev
			break
		}
	}
	if s.dev == nil {
		cfg.Text.SendText(hal.SeverityError, "MS5525[%d]: no sensor found", cfg.Instance)
		return nil, ErrNotFound
	}

	s.start()
	return s, nil
}

// load reads the PROM of one candidate with the bus held.
func (s *Sensor) load(dev hal.Device) bool {
	sem := dev.Semaphore()
	sem.Lock()
	defer sem.Unlock()

	// A mis-detected sensor is worse than a slow boot.
	dev.SetRetries(s.cfg.ProbeRetries)

	cal, ok := readPROM(dev, s.clock)
	if !ok {
		return false
	}
	if !cal.Valid() {
		s.cfg.Text.SendText(hal.SeverityWarning, "MS5525[%d]: CRC mismatch 0x%04x 0x%04x",
			s.cfg.Instance, cal.StoredCRC(), CRC4(cal))
		if s.cfg.StrictChecksum {
			return false
		}
	}
	s.cal = cal
	s.cfg.Text.SendText(hal.SeverityInfo, "MS5525[%d]: found on bus %d addr 0x%02x",
		s.cfg.Instance, dev.Bus(), dev.Address())
	return true
}

func (s *Sensor) start() {
	sem := s.dev.Semaphore()
	sem.Lock()
	s.phase = 0
	s.cmdSent = CmdConvertTemperature
	if !s.sendCommand(s.cmdSent) {
		s.ignoreNext = true
	}
	s.dev.SetRetries(s.cfg.RunRetries)
	sem.Unlock()

	s.timer = s.dev.RegisterPeriodicCallback(time.Second/time.Duration(s.cfg.Rate), s.tick)
}

// Close stops the conversion cycle. The sensor is left idle.
func (s *Sensor) Close() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Sensor) sendCommand(cmd byte) bool {
	if err := s.dev.Transfer([]byte{cmd}, nil); err != nil {
		s.writeFailures.Add(1)
		return false
	}
	s.cmdSentUs = s.clock.Micros()
	return true
}

// readADC returns the last conversion result. A failed read counts as zero.
func (s *Sensor) readADC() uint32 {
	var buf [3]byte
	if err := s.dev.ReadRegisters(CmdADCRead, buf[:]); err != nil {
		s.readFailures.Add(1)
		return 0
	}
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}

func (s *Sensor) nextCommand() byte {
	if s.phase == 0 {
		return CmdConvertTemperature
	}
	return CmdConvertPressure
}

// tick runs once per callback period with the bus held.
func (s *Sensor) tick() {
	s.ticks.Add(1)

	if s.clock.Micros()-s.cmdSentUs < conversionTimeUs {
		return
	}

	adc := s.readADC()
	if adc == 0 {
		// Either read too soon after the command or the same result was read
		// twice. Start the same conversion again so the device is busy with
		// something known; both this reading and the next are suspect.
		s.zeroReads.Add(1)
		s.sendCommand(s.cmdSent)
		s.ignoreNext = true
		return
	}

	if !s.ignoreNext {
		switch s.cmdSent {
		case CmdConvertTemperature:
			s.d2 = adc
		case CmdConvertPressure:
			s.d1 = adc
			if s.d2 != 0 {
				s.calculate()
			}
		}
	}
	s.ignoreNext = false

	s.cmdSent = s.nextCommand()
	if !s.sendCommand(s.cmdSent) {
		// Device state is unknown after a failed write.
		s.ignoreNext = true
		return
	}
	s.phase = (s.phase + 1) % cadence
}

// Compensate converts raw pressure (D1) and temperature (D2) counts to
// pascals and degrees Celsius with the second order model for the 001DS part.
func Compensate(cal *Calibration, d1, d2 uint32) (pressure, temperature float64) {
	dT := float64(d2) - float64(cal[5])*(1<<q5)
	temp := 2000 + dT*float64(cal[6])/(1<<q6)
	off := float64(cal[2])*(1<<q2) + float64(cal[4])*dT/(1<<q4)
	sens := float64(cal[1])*(1<<q1) + float64(cal[3])*dT/(1<<q3)
	p := (float64(d1)*sens/(1<<21) - off) / (1 << 15)
	return psiToPa * 1.0e-4 * p, temp * 0.01
}

func (s *Sensor) calculate() {
	pressure, temperature := Compensate(&s.cal, s.d1, s.d2)
	now := s.clock.Millis()

	s.mu.Lock()
	s.acc.pressureSum += pressure
	s.acc.temperatureSum += temperature
	s.acc.pressCount++
	s.acc.tempCount++
	s.acc.lastSampleMs = now
	s.acc.haveSample = true
	s.mu.Unlock()

	s.samples.Add(1)
}

// fresh must be called with s.mu held.
func (s *Sensor) fresh() bool {
	return s.acc.haveSample && s.clock.Millis()-s.acc.lastSampleMs <= staleAfterMs
}

// Pressure returns the mean differential pressure in pascals over the
// samples collected since the last call, or the previous mean if none
// arrived. ErrStale is returned if no sample landed in the last 100 ms.
func (s *Sensor) Pressure() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh() {
		return 0, ErrStale
	}
	if s.acc.pressCount > 0 {
		s.acc.pressure = s.acc.pressureSum / float64(s.acc.pressCount)
		s.acc.pressureSum = 0
		s.acc.pressCount = 0
	}
	return s.acc.pressure, nil
}

// Temperature returns the mean temperature in degrees C, like Pressure.
func (s *Sensor) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh() {
		return 0, ErrStale
	}
	if s.acc.tempCount > 0 {
		s.acc.temperature = s.acc.temperatureSum / float64(s.acc.tempCount)
		s.acc.temperatureSum = 0
		s.acc.tempCount = 0
	}
	return s.acc.temperature, nil
}

// LastSample returns the clock's Millis() at the most recent sample.
func (s *Sensor) LastSample() (ms uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.lastSampleMs, s.acc.haveSample
}

func (s *Sensor) Calibration() Calibration { return s.cal }
func (s *Sensor) Address() byte            { return s.dev.Address() }
func (s *Sensor) Bus() int                 { return s.dev.Bus() }

func (s *Sensor) Stats() Stats {
	return Stats{
		Ticks:         s.ticks.Load(),
		Samples:       s.samples.Load(),
		ZeroReads:     s.zeroReads.Load(),
		ReadFailures:  s.readFailures.Load(),
		WriteFailures: s.writeFailures.Load(),
		CRCValid:      s.cal.Valid(),
	}
}
