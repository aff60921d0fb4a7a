package hal

import (
	"fmt"
	"log"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityDebug
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	case SeverityDebug:
		return "Debug"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// TextSink receives best-effort operator notifications. Implementations must
// not block and never report failure.
type TextSink interface {
	SendText(sev Severity, format string, args ...any)
}

// LogSink writes notifications to the standard logger, stratux style:
// "<Prefix> Info: message".
type LogSink struct {
	Prefix string
}

func (s LogSink) SendText(sev Severity, format string, args ...any) {
	log.Printf("%s %s: %s\n", s.Prefix, sev, fmt.Sprintf(format, args...))
}
