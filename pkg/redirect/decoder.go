// Package redirect repairs redirect targets whose UTF-8 bytes were decoded one
// byte per character and then re-encoded, turning every non-ASCII byte into a
// spurious two-byte 110xxxxx 10xxxxxx pair.
package redirect

import (
	"strings"
)

// Marker is appended to some redirect targets and is never part of the resource address
const Marker = "#_=_"

const hexDigits = "0123456789ABCDEF"

// Repair collapses every lead/continuation byte pair back into the single
// byte it was produced from. Bytes that do not start such a pair, including a
// lead byte in the last position, are copied unchanged. The output is never
// longer than the input.
func Repair(raw []byte) []byte {
	out := make([]byte, 0, len(raw))

	for i := 0; i < len(raw); {
		b := raw[i]
		if i+1 < len(raw) && isLead(b) && isContinuation(raw[i+1]) {
			// 110000MM 10PPPPPP -> MMPPPPPP; the three padding bits shift out
			out = append(out, b<<6|raw[i+1]&0x3F)
			i += 2
			continue
		}

		out = append(out, b)
		i++
	}

	return out
}

// isLead reports whether b matches 110xxxxx
func isLead(b byte) bool {
	return b&0xE0 == 0xC0
}

// isContinuation reports whether b matches 10xxxxxx
func isContinuation(b byte) bool {
	return b&0xC0 == 0x80
}

// StripMarker removes a trailing Marker, if present
func StripMarker(s string) string {
	return strings.TrimSuffix(s, Marker)
}

// PercentEncode replaces every byte >= 0x80 with %XX (uppercase hex).
// ASCII bytes are left alone, reserved characters included.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}

	return b.String()
}

// Normalize turns a garbled Location header value into a locator that is
// safe to request: repair, strip the marker, percent-encode. Only use it on
// values known to be garbled: correctly encoded UTF-8 such as "caf\xC3\xA9"
// is collapsed as well and comes out as "caf%E9".
func Normalize(location string) string {
	repaired := string(Repair([]byte(location)))
	return PercentEncode(StripMarker(repaired))
}
