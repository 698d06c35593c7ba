// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers wrap them with %w and test with errors.Is.
var (
	// Frame drop errors: logged and discarded, the dispatch loop continues.
	ErrTruncated          = errors.New("rawhttpd: frame truncated")
	ErrUnsupportedOptions = errors.New("rawhttpd: unsupported ip header options")
	ErrLengthMismatch     = errors.New("rawhttpd: ip total length mismatch")
	ErrChecksumMismatch   = errors.New("rawhttpd: tcp checksum mismatch")

	// Ignore errors: the frame is not for us.
	ErrNotIPv4     = errors.New("rawhttpd: not an ipv4 frame")
	ErrNotTCP      = errors.New("rawhttpd: not a tcp datagram")
	ErrWrongPort   = errors.New("rawhttpd: destination port not served")
	ErrUnknownFlow = errors.New("rawhttpd: segment for unknown flow")

	// Link errors are fatal to the dispatch loop.
	ErrLinkClosed = errors.New("rawhttpd: link device closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("rawhttpd: invalid configuration")
)

// Disposition tells the dispatch loop what to do with a failed frame.
type Disposition uint8

const (
	// DispositionFatal terminates the dispatch loop.
	DispositionFatal Disposition = iota
	// DispositionDrop logs and discards the frame.
	DispositionDrop
	// DispositionIgnore discards the frame silently.
	DispositionIgnore
)

func (d Disposition) String() string {
	switch d {
	case DispositionDrop:
		return "drop"
	case DispositionIgnore:
		return "ignore"
	default:
		return "fatal"
	}
}

// Classify maps an error returned while handling a frame to its disposition.
// Errors outside the frame taxonomy are fatal.
func Classify(err error) Disposition {
	switch {
	case errors.Is(err, ErrTruncated),
		errors.Is(err, ErrUnsupportedOptions),
		errors.Is(err, ErrLengthMismatch),
		errors.Is(err, ErrChecksumMismatch):
		return DispositionDrop
	case errors.Is(err, ErrNotIPv4),
		errors.Is(err, ErrNotTCP),
		errors.Is(err, ErrWrongPort),
		errors.Is(err, ErrUnknownFlow):
		return DispositionIgnore
	default:
		return DispositionFatal
	}
}

// Reason returns a short metric label for a frame error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrUnsupportedOptions):
		return "ip_options"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, ErrNotIPv4):
		return "not_ipv4"
	case errors.Is(err, ErrNotTCP):
		return "not_tcp"
	case errors.Is(err, ErrWrongPort):
		return "wrong_port"
	case errors.Is(err, ErrUnknownFlow):
		return "unknown_flow"
	default:
		return "other"
	}
}
