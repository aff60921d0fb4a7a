package sensors

import (
	"periph.io/x/conn/v3/physic"

	"github.com/b3nn0/ms5525/hal"
	"github.com/b3nn0/ms5525/ms5525"
)

// MS5525 represents an MS5525DSO differential pressure sensor and implements
// the PressureReader interface. Pressure is the differential pressure across
// the two ports.
type MS5525 struct {
	sensor *ms5525.Sensor
}

// NewMS5525 probes for an MS5525 on the bus given in cfg and starts reading it.
func NewMS5525(mgr hal.Manager, clock hal.Clock, cfg ms5525.Config) (*MS5525, error) {
	s, err := ms5525.Probe(mgr, clock, cfg)
	if err != nil {
		return nil, err
	}
	return &MS5525{sensor: s}, nil
}

// Temperature returns the current temperature in degrees C measured by the MS5525.
func (d *MS5525) Temperature() (float64, error) {
	return d.sensor.Temperature()
}

// Pressure returns the current differential pressure in mbar.
func (d *MS5525) Pressure() (float64, error) {
	p, err := d.sensor.Pressure()
	return p / 100, err
}

// Close stops the measurements of the MS5525.
func (d *MS5525) Close() {
	d.sensor.Close()
}

// Sense fills in pressure and temperature in periph units.
func (d *MS5525) Sense(e *physic.Env) error {
	p, err := d.sensor.Pressure()
	if err != nil {
		return err
	}
	t, err := d.sensor.Temperature()
	if err != nil {
		return err
	}
	e.Pressure = physic.Pressure(p * float64(physic.Pascal))
	e.Temperature = physic.ZeroCelsius + physic.Temperature(t*float64(physic.Kelvin))
	return nil
}

// Precision reports the resolution at OSR 1024.
func (d *MS5525) Precision(e *physic.Env) {
	e.Pressure = 100 * physic.MilliPascal
	e.Temperature = 10 * physic.MilliKelvin
	e.Humidity = 0
}

// Sensor exposes the underlying driver for diagnostics.
func (d *MS5525) Sensor() *ms5525.Sensor {
	return d.sensor
}
