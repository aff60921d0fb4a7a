package hal

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestPeriphManagerTransfer(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x77, W: []byte{0x1E}},
			{Addr: 0x77, W: []byte{0xA0}, R: []byte{0x8F, 0xDA}},
			{Addr: 0x77, W: []byte{0x00}, R: []byte{0x8D, 0xF7, 0x8B}},
		},
		DontPanic: true,
	}
	m := NewPeriphManager(func(bus int) (i2c.Bus, error) { return pb, nil })
	dev, err := m.Device(1, 0x77)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Transfer([]byte{0x1E}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	word := make([]byte, 2)
	if err := dev.ReadRegisters(0xA0, word); err != nil {
		t.Fatalf("read prom: %v", err)
	}
	if !bytes.Equal(word, []byte{0x8F, 0xDA}) {
		t.Fatalf("prom word = % x", word)
	}
	adc := make([]byte, 3)
	if err := dev.ReadRegisters(0x00, adc); err != nil {
		t.Fatalf("read adc: %v", err)
	}
	if dev.Address() != 0x77 || dev.Bus() != 1 {
		t.Fatalf("device identity %d/0x%02x", dev.Bus(), dev.Address())
	}
	// Playback reports unconsumed operations on close.
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPeriphManagerOpenError(t *testing.T) {
	m := NewPeriphManager(func(bus int) (i2c.Bus, error) { return nil, errors.New("no such bus") })
	if _, err := m.Device(3, 0x76); !errors.Is(err, ErrNoBus) {
		t.Fatalf("err = %v, want ErrNoBus", err)
	}
}

type flakyBus struct {
	failures int
	calls    int
}

func (f *flakyBus) Tx(addr uint16, w, r []byte) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("nack")
	}
	return nil
}

func TestTransferRetries(t *testing.T) {
	tests := []struct {
		retries, failures int
		ok                bool
		calls             int
	}{
		{0, 0, true, 1},
		{0, 1, false, 1},
		{2, 2, true, 3},
		{2, 3, false, 3},
		{5, 4, true, 5},
	}
	for _, tt := range tests {
		fb := &flakyBus{failures: tt.failures}
		m := newManager(func(int) (txer, error) { return fb, nil })
		dev, _ := m.Device(1, 0x76)
		dev.SetRetries(tt.retries)
		err := dev.Transfer([]byte{0x44}, nil)
		if (err == nil) != tt.ok || fb.calls != tt.calls {
			t.Errorf("retries=%d failures=%d: err=%v calls=%d", tt.retries, tt.failures, err, fb.calls)
		}
	}
}

func TestEmptyTransfer(t *testing.T) {
	m := newManager(func(int) (txer, error) { return &flakyBus{}, nil })
	dev, _ := m.Device(1, 0x76)
	if err := dev.Transfer(nil, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v", err)
	}
}

func TestSemaphoreSharedPerBus(t *testing.T) {
	opened := 0
	m := newManager(func(int) (txer, error) {
		opened++
		return &flakyBus{}, nil
	})
	a, _ := m.Device(1, 0x76)
	b, _ := m.Device(1, 0x77)
	c, _ := m.Device(2, 0x76)
	if a.Semaphore() != b.Semaphore() {
		t.Fatalf("devices on one bus must share a semaphore")
	}
	if a.Semaphore() == c.Semaphore() {
		t.Fatalf("devices on different buses must not share a semaphore")
	}
	if opened != 2 {
		t.Fatalf("opened %d buses, want 2", opened)
	}
}

func TestPeriodicCallback(t *testing.T) {
	m := newManager(func(int) (txer, error) { return &flakyBus{}, nil })
	dev, _ := m.Device(1, 0x76)
	sem := dev.Semaphore().(*sync.Mutex)

	calls := make(chan bool, 16)
	p := dev.RegisterPeriodicCallback(time.Millisecond, func() {
		select {
		case calls <- !sem.TryLock():
		default:
		}
	})
	for i := 0; i < 3; i++ {
		select {
		case held := <-calls:
			if !held {
				t.Fatalf("callback ran without the bus semaphore")
			}
		case <-time.After(time.Second):
			t.Fatalf("callback %d did not run", i)
		}
	}
	p.Stop()
	p.Stop()

	time.Sleep(10 * time.Millisecond)
	for len(calls) > 0 {
		<-calls
	}
	time.Sleep(10 * time.Millisecond)
	if len(calls) != 0 {
		t.Fatalf("callback still running after Stop")
	}
}
