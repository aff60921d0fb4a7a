/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	main.go: ms5525d service entry point.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/takama/daemon"

	"github.com/b3nn0/ms5525/common"
	"github.com/b3nn0/ms5525/datalog"
)

const (
	// name of the service
	name        = "ms5525d"
	description = "MS5525 differential pressure sensor air data service"
)

var stdlog, errlog *log.Logger

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage by daemon commands or run the daemon
func (service *Service) Manage() (string, error) {
	configFile := flag.String("config", configLocation, "Settings file")
	bus := flag.Int("bus", -1, "I2C bus number, overrides settings")
	address := flag.String("addr", "", "I2C address (auto, 0x76, 0x77), overrides settings")
	driver := flag.String("driver", "", "I2C driver (embd, periph), overrides settings")
	listen := flag.String("listen", "", "HTTP listen address, overrides settings")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	usage := "Usage: " + name + " install | remove | start | stop | status"
	// if received any kind of command, do it
	if flag.NArg() > 0 {
		command := flag.Arg(0)
		switch command {
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	if !common.IsRunningAsRoot() {
		stdlog.Println("Warning: not running as root, I2C access may fail")
	}

	loadSettings := func() settings {
		s := defaultSettings()
		if err := readSettings(*configFile, &s); err != nil {
			log.Printf("%s, using defaults\n", err.Error())
			s = defaultSettings()
		} else {
			log.Printf("read in settings.\n")
		}
		if *bus >= 0 {
			s.I2CBus = *bus
		}
		if *address != "" {
			s.I2CAddress = *address
		}
		if *driver != "" {
			s.Driver = *driver
		}
		if *listen != "" {
			s.Listen = *listen
		}
		if *debug {
			s.DEBUG = true
		}
		return s
	}
	cfg := loadSettings()
	if err := cfg.validate(); err != nil {
		return "Invalid settings", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initLogging(ctx, cfg.LogDir, cfg.DEBUG)
	log.Printf("%s starting, bus %d addr %s driver %s\n", name, cfg.I2CBus, cfg.I2CAddress, cfg.Driver)

	var dlog *datalog.Log
	if cfg.DataLog {
		var err error
		if dlog, err = datalog.Open(cfg.DataLogFile); err != nil {
			log.Printf("MS5525 Error: can't open data log %s: %s\n", cfg.DataLogFile, err.Error())
			dlog = nil
		} else {
			defer dlog.Close()
		}
	}

	registerMetrics()
	air := newAirData(cfg, dlog)
	air.run(ctx, cfg)

	go func() {
		if err := http.ListenAndServe(cfg.Listen, air.handler()); err != nil {
			errlog.Println("Error: ", err)
		}
	}()

	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	// interrupt by system signal
	for {
		killSignal := <-interrupt
		log.Println("Got signal:", killSignal)
		switch killSignal {
		case syscall.SIGINT:
			return "Daemon was interrupted by system signal", nil
		case syscall.SIGUSR1:
			next := loadSettings()
			if err := next.validate(); err != nil {
				log.Printf("Ignoring settings: %s\n", err.Error())
				continue
			}
			debugLogging.Store(next.DEBUG)
			air.reconfigure(next)
		default:
			return "Daemon was killed", nil
		}
	}
}

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(1)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		errlog.Println(status, "\nError: ", err)
		os.Exit(1)
	}
	fmt.Println(status)
}
