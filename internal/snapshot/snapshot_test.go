package snapshot

import (
	"bytes"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/vovakirdan/tui-kart/internal/kart"
)

func samplePacket() Packet {
	return Packet{
		Tick: 0x0102,
		Karts: []KartRecord{{
			X: 0x1234, Y: 0xABCD, Heading: 0x40,
			Rank: 2, Lap: 3, Bump: 5, Effect: 1, Speed: 7, Events: 9,
		}},
		FinishCursor: 1,
		PowerState:   48,
		PowerOwner:   2,
		PowerPayout:  4,
		Lap:          &LapRecord{Kart: 1, Ticks: 0x0305},
	}
}

func TestPacketPinnedBytes(t *testing.T) {
	p := samplePacket()
	want := []byte{
		0x01, 0x02,
		0x12, 0x34, 0xAB, 0xCD, 0x40, 0x23, 0x51, 0x79,
		0x01,
		0x30, 0x02, 0x04,
		0x01, 0x03, 0x05,
	}
	got := AppendPacket(nil, &p)
	if !bytes.Equal(got, want) {
		t.Errorf("encoded\n% x\nwant\n% x", got, want)
	}
	if p.Size() != len(want) {
		t.Errorf("Size() = %d, want %d", p.Size(), len(want))
	}
}

func TestPacketSentinelWithoutLap(t *testing.T) {
	p := samplePacket()
	p.Lap = nil
	got := AppendPacket(nil, &p)
	if len(got) != PacketSize(1, false) {
		t.Fatalf("len = %d", len(got))
	}
	if got[len(got)-1] != NoLapUpdate {
		t.Errorf("last byte = %#x, want sentinel", got[len(got)-1])
	}
}

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		p    Packet
	}{
		{"with lap", samplePacket()},
		{"without lap", func() Packet { p := samplePacket(); p.Lap = nil; return p }()},
		{"eight karts", func() Packet {
			p := samplePacket()
			p.Karts = make([]KartRecord, 8)
			for i := range p.Karts {
				p.Karts[i] = KartRecord{X: uint16(i * 300), Y: uint16(65535 - i), Heading: uint8(i * 31),
					Rank: uint8(i), Lap: uint8(15 - i), Bump: uint8(i % 9), Effect: 6, Speed: 15, Events: 0x0F}
			}
			return p
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := AppendPacket(nil, &tt.p)
			if n := KartCount(len(buf)); n != len(tt.p.Karts) {
				t.Errorf("KartCount = %d, want %d", n, len(tt.p.Karts))
			}
			got, err := ParsePacket(buf, len(tt.p.Karts))
			if err != nil {
				t.Fatalf("ParsePacket: %v", err)
			}
			if !reflect.DeepEqual(got, tt.p) {
				t.Errorf("round trip mismatch:\n%+v\n%+v", got, tt.p)
			}
		})
	}
}

func TestParseShortPacket(t *testing.T) {
	p := samplePacket()
	buf := AppendPacket(nil, &p)
	if _, err := ParsePacket(buf[:5], 1); !errors.Is(err, ErrShortPacket) {
		t.Errorf("err = %v, want ErrShortPacket", err)
	}
	if _, err := ParsePacket(buf[:len(buf)-1], 1); !errors.Is(err, ErrShortPacket) {
		t.Errorf("truncated lap: err = %v", err)
	}
}

func TestBits(t *testing.T) {
	in := []bool{true, false, false, true, false, false, false, false, true, true}
	packed := PackBits(in)
	if len(packed) != 2 || packed[0] != 0x09 || packed[1] != 0x03 {
		t.Errorf("packed = % x", packed)
	}
	if out := UnpackBits(packed, len(in)); !reflect.DeepEqual(out, in) {
		t.Errorf("unpacked = %v", out)
	}
}

func sampleSave() SaveState {
	return SaveState{
		Version:        SaveVersion,
		Track:          "oval",
		Tick:           1234,
		CountdownTicks: 48,
		Laps:           3,
		Pickups:        true,
		Powerups:       true,
		Player:         0,
		FinishCursor:   1,
		RNG:            0xDEADBEEFCAFE,
		Power:          PowerState{State: 17, Owner: 3, Payout: 2, Reels: [3]uint8{2, 2, 1}},
		LapPending:     []int{0, 2, 0, 0, 1, 0, 0, 0},
		LapCursor:      5,
		Camera:         [][2]int32{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}, {11, 12}, {13, 14}, {15, 16}},
		CameraIndex:    3,
		Collected:      []byte{0x05},
		Karts: []kart.State{
			{Type: 1, Human: true, PosX: -5, PosY: 77, Heading: 40000, Speed: -3, FinishOrder: -1, RNG: 99, LastSegment: 4},
			{Type: 2, Remote: true, Ghost: true, FinishOrder: 0, ValidLap: true, BestLapTicks: 300},
		},
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := sampleSave()
	data, err := MarshalSave(&s)
	if err != nil {
		t.Fatalf("MarshalSave: %v", err)
	}
	got, err := UnmarshalSave(data)
	if err != nil {
		t.Fatalf("UnmarshalSave: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", got, s)
	}
}

func TestSaveVersionMismatch(t *testing.T) {
	s := sampleSave()
	s.Version = SaveVersion + 1
	data, err := MarshalSave(&s)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalSave(data); err == nil {
		t.Error("expected version error")
	}
}

func TestCodecConcurrentUse(t *testing.T) {
	c := NewCodec()
	p := samplePacket()
	want := AppendPacket(nil, &p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				buf := c.EncodePacket(&p)
				if !bytes.Equal(buf, want) {
					t.Error("encoded bytes differ under concurrency")
					return
				}
				if _, err := c.DecodePacket(buf, 1); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
