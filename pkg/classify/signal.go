package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/jzx17/robustfetch/pkg/types"
)

// TransportKind identifies a failure that happened below HTTP
type TransportKind int

const (
	// KindNone marks a signal that carries an HTTP status instead
	KindNone TransportKind = iota
	KindTimeout
	KindUnknownHost
	// KindConnectionReset also covers redirects whose target could not be followed
	KindConnectionReset
	KindResourceNotFound
	// KindGenericIO is an I/O failure that may embed a status code in its message
	KindGenericIO
	KindOther
)

// String returns the string representation of TransportKind
func (k TransportKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindUnknownHost:
		return "unknown_host"
	case KindConnectionReset:
		return "connection_reset"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindGenericIO:
		return "generic_io"
	default:
		return "other"
	}
}

// Signal is the sole input to Classify: either an HTTP status or a transport kind
type Signal struct {
	// Status is the HTTP status code; only meaningful when Kind is KindNone
	Status int

	// Kind is the transport failure kind
	Kind TransportKind

	// Detail is the failure message, searched for an embedded status by KindGenericIO
	Detail string
}

// StatusSignal creates a signal for an HTTP status code
func StatusSignal(code int) Signal {
	return Signal{Status: code, Kind: KindNone}
}

// TransportSignal creates a signal for a transport failure
func TransportSignal(kind TransportKind, detail string) Signal {
	return Signal{Kind: kind, Detail: detail}
}

// IsStatus reports whether the signal carries an HTTP status
func (s Signal) IsStatus() bool {
	return s.Kind == KindNone
}

// String returns a short description for logs
func (s Signal) String() string {
	if s.IsStatus() {
		return fmt.Sprintf("status %d", s.Status)
	}
	return s.Kind.String()
}

var embeddedStatusPattern = regexp.MustCompile(`(?i)(?:response code|status code|status|http)[:\s]+(\d{3})\b`)

// EmbeddedStatus extracts a three-digit HTTP status code from a failure message,
// e.g. "Server returned HTTP response code: 503".
func EmbeddedStatus(message string) (int, bool) {
	m := embeddedStatusPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

// SignalFromError derives the failure signal of a failed attempt.
// It returns false only for a nil error.
func SignalFromError(err error) (Signal, bool) {
	if err == nil {
		return Signal{}, false
	}

	if code, ok := types.StatusCode(err); ok {
		return StatusSignal(code), true
	}

	msg := err.Error()

	if isConnectionReset(err, msg) {
		return TransportSignal(KindConnectionReset, msg), true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return TransportSignal(KindUnknownHost, msg), true
	}

	if isTimeout(err) {
		return TransportSignal(KindTimeout, msg), true
	}

	if errors.Is(err, fs.ErrNotExist) {
		return TransportSignal(KindResourceNotFound, msg), true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || embeddedStatusPattern.MatchString(msg) {
		return TransportSignal(KindGenericIO, msg), true
	}

	return TransportSignal(KindOther, msg), true
}

func isConnectionReset(err error, msg string) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "failed to parse location header")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
