/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	airdata.go: Connect to the MS5525, poll it and fan samples out.
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"periph.io/x/host/v3"

	"github.com/b3nn0/ms5525/common"
	"github.com/b3nn0/ms5525/datalog"
	"github.com/b3nn0/ms5525/hal"
	"github.com/b3nn0/ms5525/ms5525"
	"github.com/b3nn0/ms5525/sensors"
)

const (
	numRetries     uint8 = 5
	pollInterval         = 4 * time.Second
	sampleInterval       = 100 * time.Millisecond
	pruneInterval        = time.Hour
)

// busManager is a hal.Manager that owns its buses.
type busManager interface {
	hal.Manager
	Close() error
}

// driverReader is implemented by readers that can report driver counters.
type driverReader interface {
	Sensor() *ms5525.Sensor
}

type airStatus struct {
	Connected     bool
	Bus           int
	Address       string
	Pressure      float64 // Pa
	Temperature   float64 // degrees C
	LastSample    time.Time
	LastSampleAge string
	Samples       uint64
	ReadErrors    uint64
	Reconnects    uint64
	CPUTemp       float32
	Driver        *ms5525.Stats `json:",omitempty"`
	Messages      []textMessage

	lastSampleMs uint64
}

type liveSample struct {
	Time        time.Time
	Pressure    float64 // Pa
	Temperature float64 // degrees C
}

type airData struct {
	clock *hal.Monotonic
	text  *textLog
	dlog  *datalog.Log
	live  *broadcaster

	// open connects to the sensor with the current settings.
	open func() (sensors.PressureReader, error)

	busMu sync.Mutex
	cfg   settings
	mgr   busManager

	mu        sync.Mutex
	status    airStatus
	reader    sensors.PressureReader
	failnum   uint8
	lastStats ms5525.Stats
}

func newAirData(cfg settings, dlog *datalog.Log) *airData {
	a := &airData{
		clock: hal.NewMonotonic(),
		text:  newTextLog(20, hal.LogSink{Prefix: "MS5525"}),
		dlog:  dlog,
		live:  newBroadcaster(),
		cfg:   cfg,
	}
	a.status.CPUTemp = common.InvalidCpuTemp
	a.open = a.openSensor
	return a
}

func newBusManager(driver string) (busManager, error) {
	switch strings.ToLower(driver) {
	case driverPeriph:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("periph host init: %w", err)
		}
		return hal.NewPeriphManager(hal.OpenPeriphBus), nil
	default:
		m, err := hal.NewEmbdManager()
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (a *airData) openSensor() (sensors.PressureReader, error) {
	a.busMu.Lock()
	defer a.busMu.Unlock()
	if a.mgr == nil {
		mgr, err := newBusManager(a.cfg.Driver)
		if err != nil {
			return nil, err
		}
		a.mgr = mgr
	}
	cfg := a.cfg.sensorConfig()
	cfg.Text = a.text
	return sensors.NewMS5525(a.mgr, a.clock, cfg)
}

// reconfigure applies new settings. The sensor is dropped and picked up again
// by the next poll.
func (a *airData) reconfigure(cfg settings) {
	a.busMu.Lock()
	if a.mgr != nil && cfg.Driver != a.cfg.Driver {
		a.mgr.Close()
		a.mgr = nil
	}
	a.cfg = cfg
	a.busMu.Unlock()
	a.disconnect()
}

func (a *airData) connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status.Connected
}

func (a *airData) connect() bool {
	log.Println("MS5525 Info: attempting pressure sensor connection.")
	r, err := a.open()
	if err != nil {
		log.Printf("MS5525 Info: couldn't initialize MS5525: %s\n", err)
		return false
	}

	a.mu.Lock()
	a.reader = r
	a.failnum = 0
	a.lastStats = ms5525.Stats{}
	a.status.Connected = true
	a.status.Reconnects++
	if d, ok := r.(driverReader); ok {
		a.status.Bus = d.Sensor().Bus()
		a.status.Address = common.FormatI2CAddress(d.Sensor().Address())
	}
	a.mu.Unlock()

	connectedGauge.Set(1)
	reconnectsTotal.Inc()
	log.Println("MS5525 Info: Successfully initialized MS5525")
	return true
}

func (a *airData) disconnect() {
	a.mu.Lock()
	r := a.reader
	a.reader = nil
	a.status.Connected = false
	a.status.Driver = nil
	a.mu.Unlock()

	if r != nil {
		r.Close()
	}
	connectedGauge.Set(0)
}

// sample reads the sensor once. After more than numRetries failed reads in a
// row the sensor is closed and left for pollSensor to reconnect.
func (a *airData) sample(now time.Time) {
	a.mu.Lock()
	r := a.reader
	a.mu.Unlock()
	if r == nil {
		return
	}

	temp, err := r.Temperature()
	if err != nil {
		logDbg("MS5525 Error: Couldn't read temperature from sensor: %s\n", err)
	}
	press, err := r.Pressure()
	if err != nil {
		readErrorsTotal.Inc()
		a.mu.Lock()
		a.status.ReadErrors++
		a.failnum++
		failnum := a.failnum
		a.mu.Unlock()
		logDbg("MS5525 Error: Couldn't read pressure from sensor: %s\n", err)
		if failnum > numRetries {
			log.Printf("MS5525 Error: Couldn't read pressure from sensor %d times, closing MS5525: %s\n", failnum, err)
			a.disconnect()
		}
		return
	}
	pa := press * 100

	a.mu.Lock()
	a.failnum = 0
	a.status.Pressure = pa
	a.status.Temperature = temp
	a.status.LastSample = now
	a.status.lastSampleMs = a.clock.Millis()
	a.status.Samples++
	if d, ok := r.(driverReader); ok {
		st := d.Sensor().Stats()
		addDriverStats(a.lastStats, st)
		a.lastStats = st
		a.status.Driver = &st
	}
	a.mu.Unlock()

	pressureGauge.Set(pa)
	temperatureGauge.Set(temp)
	samplesTotal.Inc()

	if a.dlog != nil {
		if err := a.dlog.Add(now, pa, temp); err != nil {
			log.Printf("MS5525 Error: data log: %s\n", err)
		}
	}
	if msg, err := json.Marshal(liveSample{Time: now, Pressure: pa, Temperature: temp}); err == nil {
		a.live.Send(msg)
	}
}

func (a *airData) pollSensor(ctx context.Context) {
	timer := time.NewTicker(pollInterval)
	defer timer.Stop()
	for {
		if !a.connected() {
			a.connect()
		}
		select {
		case <-ctx.Done():
			a.disconnect()
			return
		case <-timer.C:
		}
	}
}

func (a *airData) pressureSender(ctx context.Context) {
	timer := time.NewTicker(sampleInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			a.sample(now)
		}
	}
}

func (a *airData) pruneDataLog(ctx context.Context, retention time.Duration) {
	if a.dlog == nil || retention <= 0 {
		return
	}
	timer := time.NewTicker(pruneInterval)
	defer timer.Stop()
	for {
		n, err := a.dlog.Prune(time.Now().Add(-retention))
		if err != nil {
			log.Printf("MS5525 Error: data log prune: %s\n", err)
		} else if n > 0 {
			log.Printf("MS5525 Info: pruned %s data log rows\n", humanize.Comma(n))
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (a *airData) setCPUTemp(t float32) {
	cpuTempGauge.Set(float64(t))
	a.mu.Lock()
	a.status.CPUTemp = t
	a.mu.Unlock()
}

// snapshot returns the status as reported on /status.
func (a *airData) snapshot() airStatus {
	a.mu.Lock()
	st := a.status
	if st.Driver != nil {
		d := *st.Driver
		st.Driver = &d
	}
	a.mu.Unlock()

	if st.Samples > 0 {
		st.LastSampleAge = a.clock.HumanizeMillis(st.lastSampleMs)
	}
	st.Messages = a.text.recent()
	return st
}

// run starts the background loops. They stop with ctx.
func (a *airData) run(ctx context.Context, cfg settings) {
	go a.pollSensor(ctx)
	go a.pressureSender(ctx)
	go a.live.writer(ctx)
	go common.CpuTempMonitor(ctx, a.setCPUTemp)
	if cfg.DataLog {
		go a.pruneDataLog(ctx, time.Duration(cfg.DataLogRetention)*time.Hour)
	}
}
