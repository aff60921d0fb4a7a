package common

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"
)

func IsRunningAsRoot() bool {
	usr, err := user.Current()
	return err == nil && usr.Username == "root"
}

// ParseI2CAddress accepts "auto" (or empty) as 0, and 7 bit addresses in
// hex ("0x77") or decimal ("119").
func ParseI2CAddress(s string) (byte, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "auto" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v > 0x7F {
		return 0, fmt.Errorf("invalid I2C address %q", s)
	}
	return byte(v), nil
}

// FormatI2CAddress is the inverse of ParseI2CAddress.
func FormatI2CAddress(a byte) string {
	if a == 0 {
		return "auto"
	}
	return fmt.Sprintf("0x%02x", a)
}
