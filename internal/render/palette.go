package render

var (
	defaultPalette = []rune(" .:-=+*#%@")
	blockPalette   = []rune(" ░▒▓█")
	asciiPalette   = []rune(" .,:;irsXA253hMHGS#9B&@")
)

// Palette returns glyphs ordered from empty to full, used to map cell
// brightness in the terminal surface.
func Palette(name string) []rune {
	switch name {
	case "block":
		return blockPalette
	case "ascii":
		return asciiPalette
	default:
		return defaultPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"default", "block", "ascii"}
}
