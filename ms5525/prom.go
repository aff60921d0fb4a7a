package ms5525

import (
	"encoding/binary"
	"fmt"

	"github.com/b3nn0/ms5525/hal"
)

// Calibration holds the factory PROM. Word 0 is reserved, words 1 to 6 are
// the coefficients C1..C6 and the low nibble of word 7 is the CRC.
type Calibration [8]uint16

// StoredCRC is the CRC nibble the device reports.
func (c *Calibration) StoredCRC() uint16 { return c[7] & 0x000F }

// Valid reports whether the stored CRC matches the table contents.
func (c *Calibration) Valid() bool { return CRC4(*c) == c.StoredCRC() }

func (c *Calibration) allZero() bool {
	for _, w := range c {
		if w != 0 {
			return false
		}
	}
	return true
}

func (c Calibration) String() string {
	return fmt.Sprintf("C1=%d C2=%d C3=%d C4=%d C5=%d C6=%d crc=0x%x", c[1], c[2], c[3], c[4], c[5], c[6], c.StoredCRC())
}

// CRC4 computes the 4 bit CRC used by Measurement Specialties pressure
// sensors (AN520) over the table with the low byte of word 7 cleared.
func CRC4(c Calibration) uint16 {
	c[7] &= 0xFF00
	var rem uint16
	for i := 0; i < 16; i++ {
		if i&1 == 1 {
			rem ^= c[i>>1] & 0x00FF
		} else {
			rem ^= c[i>>1] >> 8
		}
		for bit := 0; bit < 8; bit++ {
			if rem&0x8000 != 0 {
				rem = (rem << 1) ^ 0x3000
			} else {
				rem <<= 1
			}
		}
	}
	return (rem >> 12) & 0xF
}

// readPROM resets the device and reads its calibration table. It returns
// ok=false if any transfer failed or the table reads back as all zeros, which
// is what a floating CSB address looks like.
func readPROM(dev hal.Device, clock hal.Clock) (cal Calibration, ok bool) {
	if err := dev.Transfer([]byte{CmdReset}, nil); err != nil {
		return cal, false
	}
	clock.Delay(resetDelay)

	var buf [2]byte
	for i := range cal {
		if err := dev.ReadRegisters(RegPROM+byte(i*2), buf[:]); err != nil {
			return cal, false
		}
		cal[i] = binary.BigEndian.Uint16(buf[:])
	}
	if cal.allZero() {
		return cal, false
	}
	return cal, true
}
