// Package sensors provides a stratux interface to the pressure sensors used
// for air data.
package sensors

// PressureReader provides an interface to a sensor reading pressure and maybe
// temperature, like the MS5525.
type PressureReader interface {
	Temperature() (temp float64, tempError error) // Temperature returns the temperature in degrees C.
	Pressure() (press float64, pressError error)  // Pressure returns the pressure in mBar.
	Close()                                       // Close stops reading from the sensor.
}
