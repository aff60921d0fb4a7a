package hal

import (
	"fmt"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
)

// embdBus adapts an embd.I2CBus to the write-then-read transaction model.
type embdBus struct {
	bus embd.I2CBus
}

func (b embdBus) Tx(addr uint16, w, r []byte) error {
	a := byte(addr)
	switch {
	case len(r) == 0:
		return b.bus.WriteBytes(a, w)
	case len(w) == 1:
		return b.bus.ReadFromReg(a, w[0], r)
	}
	if len(w) > 0 {
		if err := b.bus.WriteBytes(a, w); err != nil {
			return err
		}
	}
	v, err := b.bus.ReadBytes(a, len(r))
	if err != nil {
		return err
	}
	if len(v) < len(r) {
		return ErrShortRead
	}
	copy(r, v)
	return nil
}

func (b embdBus) Close() error {
	return b.bus.Close()
}

// EmbdManager hands out devices on the host's I2C buses through embd.
type EmbdManager struct {
	*manager
}

// NewEmbdManager initialises embd's I2C driver for the detected host.
func NewEmbdManager() (*EmbdManager, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBus, err)
	}
	m := newManager(func(bus int) (txer, error) {
		return embdBus{bus: embd.NewI2CBus(byte(bus))}, nil
	})
	return &EmbdManager{manager: m}, nil
}

// Close releases the buses and embd's I2C driver.
func (m *EmbdManager) Close() error {
	err := m.manager.Close()
	if cerr := embd.CloseI2C(); err == nil {
		err = cerr
	}
	return err
}
