package aesd

import "bytes"

// DefaultTerminator ends a client message.
const DefaultTerminator = '\n'

// Framer finds the terminator in a received chunk.
type Framer struct {
	Terminator byte
}

// Scan returns the index of the first terminator in chunk, or -1.
func (f Framer) Scan(chunk []byte) int {
	return bytes.IndexByte(chunk, f.Terminator)
}
