// Package ms5525 provides a driver for TE Connectivity's MS5525DSO digital
// pressure & temperature sensor.
// The datasheet can be found here: https://www.te.com/commerce/DocumentDelivery/DDEController?Action=showdoc&DocId=Data+Sheet%7FMS5525DSO%7FB2%7Fpdf%7FEnglish%7FENG_DS_MS5525DSO_B2.pdf
package ms5525

import "time"

// I2C addresses, selected by the CSB pin.
const (
	Address1 byte = 0x76
	Address2 byte = 0x77

	// AddressAuto probes Address1 then Address2.
	AddressAuto byte = 0
)

const (
	CmdReset   byte = 0x1E
	CmdADCRead byte = 0x00 // 24 bit result of the last conversion
	RegPROM    byte = 0xA0 // 8 words, 0xA0 thru 0xAE

	CmdConvertD1OSR256  byte = 0x40
	CmdConvertD1OSR512  byte = 0x42
	CmdConvertD1OSR1024 byte = 0x44
	CmdConvertD1OSR2048 byte = 0x46
	CmdConvertD1OSR4096 byte = 0x48
	CmdConvertD2OSR256  byte = 0x50
	CmdConvertD2OSR512  byte = 0x52
	CmdConvertD2OSR1024 byte = 0x54
	CmdConvertD2OSR2048 byte = 0x56
	CmdConvertD2OSR4096 byte = 0x58
)

// OSR 1024 is fast enough to keep the noise down while self-heating stays small.
const (
	CmdConvertPressure    = CmdConvertD1OSR1024
	CmdConvertTemperature = CmdConvertD2OSR1024
)

// Coefficient exponents for the 001DS (1 PSI) part.
const (
	q1 = 15
	q2 = 17
	q3 = 7
	q4 = 5
	q5 = 7
	q6 = 21
)

const (
	psiToPa = 6894.757

	resetDelay       = 5 * time.Millisecond // datasheet: 2.8 ms
	conversionTimeUs = 10000                // OSR 1024 worst case with margin
	staleAfterMs     = 100
	cadence          = 5 // one temperature conversion per cadence
)
