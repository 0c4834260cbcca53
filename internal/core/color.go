package core

// Color is the foreground of a screen cell. The renderer maps each value
// to a terminal palette entry.
type Color uint8

const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
	ColorOrange
	ColorGray
)

// kartPalette has one entry per roster slot.
var kartPalette = [...]Color{
	ColorBrightRed, ColorBrightBlue, ColorBrightYellow, ColorBrightMagenta,
	ColorBrightGreen, ColorCyan, ColorOrange, ColorWhite,
}

// KartColor returns the colour of the kart in roster slot i. Slots past
// the palette wrap around.
func KartColor(i int) Color {
	return kartPalette[i%len(kartPalette)]
}
