package extractmd

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// FallbackFilename is used when a title yields no usable file name.
const FallbackFilename = "ExtractMD"

const maxFilenameRunes = 100

var (
	unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a page title into a safe Markdown file name. Path
// separators, reserved characters and control characters are dropped,
// whitespace is collapsed and the result is capped at 100 characters. An
// empty result becomes "ExtractMD.md".
func SanitizeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, " ")
	name = filenameSpaces.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")

	if utf8.RuneCountInString(name) > maxFilenameRunes {
		name = strings.TrimRight(string([]rune(name)[:maxFilenameRunes]), " .")
	}
	if name == "" {
		name = FallbackFilename
	}
	return name + ".md"
}
