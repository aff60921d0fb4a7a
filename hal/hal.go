// Package hal provides the hardware abstraction used by the stratux sensor
// drivers: addressed I2C devices with retry and periodic callback support, a
// monotonic clock and a text sink for operator notifications.
//
// Two bus back ends are available, one built on github.com/kidoman/embd (the
// Raspberry Pi default) and one built on periph.io.
package hal

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNoBus     = errors.New("hal: no I2C bus available")
	ErrShortRead = errors.New("hal: short read from I2C device")
	ErrNoData    = errors.New("hal: empty transfer")
)

// Device is a single addressed peripheral on a shared I2C bus.
//
// Transfers are not locked internally. Callers that need exclusive use of the
// bus take Semaphore() around a sequence of transfers; periodic callbacks run
// with it already held.
type Device interface {
	// Transfer writes send and then reads len(recv) bytes. Either may be empty.
	Transfer(send, recv []byte) error
	// ReadRegisters writes the register address and reads len(recv) bytes back.
	ReadRegisters(reg byte, recv []byte) error
	// SetRetries sets how many times a failed transfer is repeated.
	SetRetries(n int)
	Semaphore() sync.Locker
	// RegisterPeriodicCallback runs cb every period on its own goroutine with
	// the device semaphore held.
	RegisterPeriodicCallback(period time.Duration, cb func()) Periodic
	Address() byte
	Bus() int
}

// Manager hands out devices on the buses it owns.
type Manager interface {
	Device(bus int, addr byte) (Device, error)
}

// Periodic is a handle for a registered periodic callback.
type Periodic interface {
	Stop()
}

// Clock is a monotonic time source.
type Clock interface {
	Micros() uint64
	Millis() uint64
	// Delay blocks the caller. Only for one-time initialisation.
	Delay(d time.Duration)
}
