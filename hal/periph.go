package hal

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// PeriphManager hands out devices on periph.io I2C buses.
type PeriphManager struct {
	*manager
}

// NewPeriphManager uses open to obtain the bus for a bus number. periph's
// host drivers must already be initialised by the caller.
func NewPeriphManager(open func(bus int) (i2c.Bus, error)) *PeriphManager {
	m := newManager(func(bus int) (txer, error) {
		b, err := open(bus)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoBus, err)
		}
		return b, nil
	})
	return &PeriphManager{manager: m}
}

// OpenPeriphBus opens a bus by number through the periph registry.
func OpenPeriphBus(bus int) (i2c.Bus, error) {
	return i2creg.Open(strconv.Itoa(bus))
}
