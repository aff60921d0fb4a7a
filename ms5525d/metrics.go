package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/b3nn0/ms5525/ms5525"
)

var (
	pressureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ms5525_pressure_pa",
		Help: "Differential pressure, Pa.",
	})

	temperatureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ms5525_temperature_c",
		Help: "Sensor temperature, degrees C.",
	})

	cpuTempGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ms5525_cpu_temp_c",
		Help: "Current CPU temp.",
	})

	connectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ms5525_connected",
		Help: "1 while the sensor is connected.",
	})

	samplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ms5525_samples_total",
		Help: "Samples read by the daemon.",
	})

	readErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ms5525_read_errors_total",
		Help: "Failed or stale reads.",
	})

	reconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ms5525_connects_total",
		Help: "Successful sensor connections.",
	})

	driverEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms5525_driver_events_total",
			Help: "Conversion cycle counters of the driver.",
		},
		[]string{"event"},
	)
)

func registerMetrics() {
	prometheus.MustRegister(pressureGauge)
	prometheus.MustRegister(temperatureGauge)
	prometheus.MustRegister(cpuTempGauge)
	prometheus.MustRegister(connectedGauge)
	prometheus.MustRegister(samplesTotal)
	prometheus.MustRegister(readErrorsTotal)
	prometheus.MustRegister(reconnectsTotal)
	prometheus.MustRegister(driverEvents)
}

// addDriverStats adds the counter increments between two driver snapshots.
func addDriverStats(prev, cur ms5525.Stats) {
	add := func(event string, p, c uint64) {
		if c > p {
			driverEvents.WithLabelValues(event).Add(float64(c - p))
		}
	}
	add("tick", prev.Ticks, cur.Ticks)
	add("sample", prev.Samples, cur.Samples)
	add("zero_read", prev.ZeroReads, cur.ZeroReads)
	add("read_failure", prev.ReadFailures, cur.ReadFailures)
	add("write_failure", prev.WriteFailures, cur.WriteFailures)
}
