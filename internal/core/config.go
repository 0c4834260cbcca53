package core

// RuntimeConfig contains configuration passed to the race driver at start.
type RuntimeConfig struct {
	ScreenW  int   // Screen width in characters
	ScreenH  int   // Screen height in characters
	TickRate int   // Simulation ticks per second (default 16)
	Seed     int64 // RNG seed for deterministic races
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		ScreenW:  80,
		ScreenH:  24,
		TickRate: 16,
		Seed:     0, // 0 means use current time in platform layer
	}
}
