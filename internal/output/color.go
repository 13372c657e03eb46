package output

import (
	"hash/fnv"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/nlp"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorGray    = "\033[90m"
	colorBold    = "\033[1m"
)

// keyPalette colours author buckets. A key always gets the same colour.
var keyPalette = []string{colorCyan, colorMagenta, colorBlue, colorYellow, colorGreen}

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// ParseColorMode converts "auto", "always" or "never" to a ColorMode,
// defaulting to ColorAuto.
func ParseColorMode(s string) ColorMode {
	switch strings.ToLower(s) {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// ColorizeKey wraps text in the colour assigned to key. The unknown bucket
// is gray.
func ColorizeKey(key chat.AuthorKey, text string) string {
	if key == chat.UnknownKey {
		return colorGray + text + colorReset
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return keyPalette[h.Sum32()%uint32(len(keyPalette))] + text + colorReset
}

// ColorizeSentiment colours text by sentiment label: positive green,
// negative red, neutral gray. Other labels are left as is.
func ColorizeSentiment(label, text string) string {
	switch label {
	case nlp.LabelPositive:
		return colorGreen + text + colorReset
	case nlp.LabelNegative:
		return colorRed + text + colorReset
	case nlp.LabelNeutral:
		return colorGray + text + colorReset
	default:
		return text
	}
}

// bold wraps text in the bold attribute.
func bold(text string) string {
	return colorBold + text + colorReset
}
