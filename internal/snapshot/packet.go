// Package snapshot encodes race state for the wire and for pause/resume.
//
// The per-tick packet is a fixed big-endian layout shared by every peer:
//
//	tick            u16
//	per kart        x u16, y u16 (Q8.8 tiles), heading u8 (1/256 turn),
//	                rank<<4|lap, bump<<4|effect, speed<<4|events
//	finish cursor   u8
//	power-up        state u8, owner u8, payout u8
//	lap update      0xFF, or kart u8 followed by lap ticks u16
//
// The save state is a msgpack document holding every field at full precision.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// NoLapUpdate is the selector byte of a packet that carries no lap time.
const NoLapUpdate = 0xFF

// KartRecordSize is the encoded size of one kart record.
const KartRecordSize = 8

// ErrShortPacket is returned when a buffer is smaller than its layout.
var ErrShortPacket = errors.New("snapshot: short packet")

// KartRecord is the compact per-tick view of one kart.
type KartRecord struct {
	X, Y    uint16 // position in Q8.8 tiles
	Heading uint8
	Rank    uint8 // 0..15
	Lap     uint8 // 0..15
	Bump    uint8 // 0..15
	Effect  uint8 // 0..15
	Speed   uint8 // 0..15, half tiles per tick
	Events  uint8 // low four event bits
}

// LapRecord piggy-backs one completed lap time.
type LapRecord struct {
	Kart  uint8
	Ticks uint16
}

// Packet is one tick of race state as sent by the host.
type Packet struct {
	Tick         uint16
	Karts        []KartRecord
	FinishCursor uint8
	PowerState   uint8
	PowerOwner   uint8
	PowerPayout  uint8
	Lap          *LapRecord
}

// Size returns the encoded length of p.
func (p *Packet) Size() int {
	return PacketSize(len(p.Karts), p.Lap != nil)
}

// PacketSize returns the encoded length of a packet for n karts.
func PacketSize(n int, withLap bool) int {
	size := 2 + n*KartRecordSize + 1 + 3 + 1
	if withLap {
		size += 2
	}
	return size
}

// AppendPacket appends the wire form of p to dst.
func AppendPacket(dst []byte, p *Packet) []byte {
	dst = binary.BigEndian.AppendUint16(dst, p.Tick)
	for _, k := range p.Karts {
		dst = binary.BigEndian.AppendUint16(dst, k.X)
		dst = binary.BigEndian.AppendUint16(dst, k.Y)
		dst = append(dst,
			k.Heading,
			k.Rank<<4|k.Lap&0x0F,
			k.Bump<<4|k.Effect&0x0F,
			k.Speed<<4|k.Events&0x0F,
		)
	}
	dst = append(dst, p.FinishCursor, p.PowerState, p.PowerOwner, p.PowerPayout)
	if p.Lap == nil {
		return append(dst, NoLapUpdate)
	}
	dst = append(dst, p.Lap.Kart)
	return binary.BigEndian.AppendUint16(dst, p.Lap.Ticks)
}

// ParsePacket decodes a packet carrying n kart records.
func ParsePacket(buf []byte, n int) (Packet, error) {
	if len(buf) < PacketSize(n, false) {
		return Packet{}, fmt.Errorf("%w: %d bytes for %d karts", ErrShortPacket, len(buf), n)
	}
	p := Packet{
		Tick:  binary.BigEndian.Uint16(buf),
		Karts: make([]KartRecord, n),
	}
	off := 2
	for i := range p.Karts {
		b := buf[off : off+KartRecordSize]
		p.Karts[i] = KartRecord{
			X:       binary.BigEndian.Uint16(b[0:]),
			Y:       binary.BigEndian.Uint16(b[2:]),
			Heading: b[4],
			Rank:    b[5] >> 4,
			Lap:     b[5] & 0x0F,
			Bump:    b[6] >> 4,
			Effect:  b[6] & 0x0F,
			Speed:   b[7] >> 4,
			Events:  b[7] & 0x0F,
		}
		off += KartRecordSize
	}
	p.FinishCursor = buf[off]
	p.PowerState = buf[off+1]
	p.PowerOwner = buf[off+2]
	p.PowerPayout = buf[off+3]
	off += 4

	if buf[off] == NoLapUpdate {
		return p, nil
	}
	if len(buf) < off+3 {
		return Packet{}, fmt.Errorf("%w: lap update truncated", ErrShortPacket)
	}
	p.Lap = &LapRecord{Kart: buf[off], Ticks: binary.BigEndian.Uint16(buf[off+1:])}
	return p, nil
}

// KartCount infers the number of kart records from a packet length, or -1
// when no layout matches.
func KartCount(size int) int {
	for _, fixedPart := range []int{PacketSize(0, false), PacketSize(0, true)} {
		if size >= fixedPart && (size-fixedPart)%KartRecordSize == 0 {
			return (size - fixedPart) / KartRecordSize
		}
	}
	return -1
}
