package snapshot

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vovakirdan/tui-kart/internal/kart"
)

// SaveVersion is bumped whenever SaveState changes shape.
const SaveVersion = 2

// PowerState is the fruit machine at full precision.
type PowerState struct {
	State  int      `msgpack:"state"`
	Owner  int      `msgpack:"owner"`
	Payout uint8    `msgpack:"payout"`
	Reels  [3]uint8 `msgpack:"reels"`
}

// SaveState is every field needed to resume a race exactly.
type SaveState struct {
	Version int    `msgpack:"v"`
	Track   string `msgpack:"track"`

	Tick           int    `msgpack:"tick"`
	CountdownTicks int    `msgpack:"countdown"`
	Laps           int    `msgpack:"laps"`
	Pickups        bool   `msgpack:"pickups"`
	Powerups       bool   `msgpack:"powerups"`
	Player         int    `msgpack:"player"`
	FinishCursor   int    `msgpack:"finish"`
	RNG            uint64 `msgpack:"rng"`
	Difficulty     string `msgpack:"difficulty"` // automated drivers' preset

	Power      PowerState `msgpack:"power"`
	LapPending []int      `msgpack:"lap_pending"`
	LapCursor  int        `msgpack:"lap_cursor"`

	Camera      [][2]int32 `msgpack:"camera"`
	CameraIndex int        `msgpack:"camera_index"`
	Collected   []byte     `msgpack:"collected"` // bitmap over track objects

	Karts []kart.State `msgpack:"karts"`
}

// MarshalSave encodes a save state.
func MarshalSave(s *SaveState) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode save: %w", err)
	}
	return data, nil
}

// UnmarshalSave decodes a save state.
func UnmarshalSave(data []byte) (SaveState, error) {
	var s SaveState
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return SaveState{}, fmt.Errorf("snapshot: decode save: %w", err)
	}
	if s.Version != SaveVersion {
		return SaveState{}, fmt.Errorf("snapshot: save version %d, want %d", s.Version, SaveVersion)
	}
	return s, nil
}

// PackBits packs a bool slice into a little-endian bitmap.
func PackBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// UnpackBits expands a bitmap into n bools.
func UnpackBits(data []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		if i/8 < len(data) {
			out[i] = data[i/8]&(1<<(i%8)) != 0
		}
	}
	return out
}
