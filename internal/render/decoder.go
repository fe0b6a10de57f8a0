// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a streamed chat answer into safe display output.
package render

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// INCREMENTAL DECODER
// =============================================================================

const decodeBufSize = 4096

// Decoder decodes a UTF-8 byte stream that arrives in arbitrary pieces.
//
// A multi-byte character split across two chunks is held back until the
// rest of it arrives, so it decodes to the same character as if it had
// been delivered in one piece. Invalid bytes become U+FFFD; decoding never
// fails. A leading byte order mark is dropped.
type Decoder struct {
	dec     *encoding.Decoder
	pending []byte
	buf     []byte
	started bool
}

// NewDecoder creates a decoder positioned at the start of a stream.
func NewDecoder() *Decoder {
	return &Decoder{
		dec: unicode.UTF8.NewDecoder(),
		buf: make([]byte, decodeBufSize),
	}
}

// Decode returns the text for p. Bytes of an incomplete trailing sequence
// are buffered and prefixed to the next call.
func (d *Decoder) Decode(p []byte) string {
	return d.decode(p, false)
}

// Flush ends the stream and returns whatever text the buffered tail
// decodes to (U+FFFD for a truncated sequence).
func (d *Decoder) Flush() string {
	out := d.decode(nil, true)
	d.dec.Reset()
	d.started = false
	return out
}

// Pending returns the number of bytes held back waiting for more input.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) decode(p []byte, atEOF bool) string {
	src := p
	if len(d.pending) > 0 {
		src = make([]byte, 0, len(d.pending)+len(p))
		src = append(src, d.pending...)
		src = append(src, p...)
		d.pending = nil
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.dec.Transform(d.buf, src, atEOF)
		out.Write(d.buf[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return d.trimBOM(out.String())
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.buf = make([]byte, len(d.buf)*2)
			}
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return d.trimBOM(out.String())
		default:
			// UTF-8 decoding substitutes instead of failing; keep the rest
			// for the next call rather than dropping it.
			d.pending = append([]byte(nil), src...)
			return d.trimBOM(out.String())
		}
	}
}

// trimBOM drops a byte order mark at the very start of the stream.
func (d *Decoder) trimBOM(s string) string {
	if d.started || s == "" {
		return s
	}
	d.started = true
	return strings.TrimPrefix(s, "\uFEFF")
}
