package calib

import (
	"strings"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Layout is the memory layout of a tensor.
type Layout int

const (
	Invalid Layout = iota
	NCHW
	NHWC
	NC
	NCHW_C8
)

// DefaultLayout is assumed for edges with no explicit layout.
const DefaultLayout = NCHW

var layoutNames = map[Layout]string{
	Invalid: "Invalid",
	NCHW:    "NCHW",
	NHWC:    "NHWC",
	NC:      "NC",
	NCHW_C8: "NCHW_C8",
}

var layoutAliases = map[string]Layout{
	"nchw":           NCHW,
	"channels_first": NCHW,
	"nhwc":           NHWC,
	"channels_last":  NHWC,
	"nc":             NC,
	"nchw_c8":        NCHW_C8,
	"nchwc8":         NCHW_C8,
	"nchw8c":         NCHW_C8,
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	if s, ok := layoutNames[l]; ok {
		return s
	}
	return "Invalid"
}

// ParseLayout canonicalizes a layout name. Matching is case-insensitive and
// accepts the common aliases.
func ParseLayout(s string) (Layout, error) {
	if l, ok := layoutAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return Invalid, gerr.New(gerr.TypeMismatch, "unknown layout %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
