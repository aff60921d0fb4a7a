/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	settings.go: JSON settings file for the air data daemon.
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/b3nn0/ms5525/common"
	"github.com/b3nn0/ms5525/ms5525"
)

const (
	configLocation = "/boot/ms5525.conf"

	driverEmbd   = "embd"
	driverPeriph = "periph"
)

type settings struct {
	I2CBus         int
	I2CAddress     string // "auto", "0x76" or "0x77"
	Driver         string // "embd" or "periph"
	Rate           int    // Hz
	ProbeRetries   int
	RunRetries     int
	StrictChecksum bool

	Listen string
	LogDir string

	DataLog          bool
	DataLogFile      string
	DataLogRetention int // hours

	DEBUG bool
}

func defaultSettings() settings {
	return settings{
		I2CBus:           1,
		I2CAddress:       "auto",
		Driver:           driverEmbd,
		Rate:             80,
		ProbeRetries:     5,
		RunRetries:       2,
		Listen:           ":9978",
		LogDir:           "/var/log",
		DataLog:          true,
		DataLogFile:      "/var/log/ms5525.sqlite",
		DataLogRetention: 24,
	}
}

// readSettings overlays the JSON file at path onto s. Fields missing from the
// file keep their current values.
func readSettings(path string, s *settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read settings %s: %w", path, err)
	}
	if err := json.Unmarshal(buf, s); err != nil {
		return fmt.Errorf("can't parse settings %s: %w", path, err)
	}
	return s.validate()
}

func (s *settings) validate() error {
	if _, err := common.ParseI2CAddress(s.I2CAddress); err != nil {
		return err
	}
	switch strings.ToLower(s.Driver) {
	case driverEmbd, driverPeriph:
	default:
		return fmt.Errorf("unknown bus driver %q", s.Driver)
	}
	if s.Rate < 0 || s.Rate > 200 {
		return fmt.Errorf("conversion rate %dHz out of range", s.Rate)
	}
	return nil
}

func (s *settings) sensorConfig() ms5525.Config {
	addr, _ := common.ParseI2CAddress(s.I2CAddress)
	return ms5525.Config{
		Bus:            s.I2CBus,
		Address:        addr,
		ProbeRetries:   s.ProbeRetries,
		RunRetries:     s.RunRetries,
		Rate:           s.Rate,
		StrictChecksum: s.StrictChecksum,
	}
}
