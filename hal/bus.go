package hal

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// txer is the single transaction primitive every bus back end provides:
// write w, then read len(r) bytes with a repeated start.
type txer interface {
	Tx(addr uint16, w, r []byte) error
}

type sharedBus struct {
	tx  txer
	sem sync.Mutex
}

// manager opens buses lazily and shares one semaphore per bus between all
// devices on it.
type manager struct {
	mu    sync.Mutex
	open  func(bus int) (txer, error)
	buses map[int]*sharedBus
}

func newManager(open func(bus int) (txer, error)) *manager {
	return &manager{open: open, buses: map[int]*sharedBus{}}
}

func (m *manager) Device(bus int, addr byte) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sb, ok := m.buses[bus]
	if !ok {
		tx, err := m.open(bus)
		if err != nil {
			return nil, err
		}
		sb = &sharedBus{tx: tx}
		m.buses[bus] = sb
	}
	return &busDevice{bus: bus, addr: addr, shared: sb}, nil
}

// Close releases every bus opened so far.
func (m *manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for n, sb := range m.buses {
		if c, ok := sb.tx.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(m.buses, n)
	}
	return first
}

type busDevice struct {
	bus     int
	addr    byte
	shared  *sharedBus
	retries atomic.Int32
}

func (d *busDevice) Transfer(send, recv []byte) error {
	if len(send) == 0 && len(recv) == 0 {
		return ErrNoData
	}
	var err error
	for i := int32(0); i <= d.retries.Load(); i++ {
		if err = d.shared.tx.Tx(uint16(d.addr), send, recv); err == nil {
			return nil
		}
	}
	return err
}

func (d *busDevice) ReadRegisters(reg byte, recv []byte) error {
	return d.Transfer([]byte{reg}, recv)
}

func (d *busDevice) SetRetries(n int) {
	if n < 0 {
		n = 0
	}
	d.retries.Store(int32(n))
}

func (d *busDevice) Semaphore() sync.Locker { return &d.shared.sem }
func (d *busDevice) Address() byte          { return d.addr }
func (d *busDevice) Bus() int               { return d.bus }

func (d *busDevice) RegisterPeriodicCallback(period time.Duration, cb func()) Periodic {
	p := &periodic{ticker: time.NewTicker(period), done: make(chan struct{})}
	go p.run(d.Semaphore(), cb)
	return p
}

type periodic struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (p *periodic) run(sem sync.Locker, cb func()) {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			sem.Lock()
			cb()
			sem.Unlock()
		}
	}
}

func (p *periodic) Stop() {
	p.once.Do(func() {
		p.ticker.Stop()
		close(p.done)
	})
}
