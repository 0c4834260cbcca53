package snapshot

import "sync"

// Codec serializes packet and save-state access. The transport may call it
// from a different goroutine than the tick driver.
type Codec struct {
	mu  sync.Mutex
	buf []byte
}

// NewCodec creates a codec with a reusable scratch buffer.
func NewCodec() *Codec {
	return &Codec{buf: make([]byte, 0, PacketSize(8, true))}
}

// EncodePacket returns the wire form of p. The returned slice is owned by
// the caller.
func (c *Codec) EncodePacket(p *Packet) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf = AppendPacket(c.buf[:0], p)
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	return out
}

// DecodePacket parses a packet carrying n kart records.
func (c *Codec) DecodePacket(buf []byte, n int) (Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ParsePacket(buf, n)
}

// EncodeSave encodes a full save state.
func (c *Codec) EncodeSave(s *SaveState) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return MarshalSave(s)
}

// DecodeSave decodes a full save state.
func (c *Codec) DecodeSave(data []byte) (SaveState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return UnmarshalSave(data)
}
