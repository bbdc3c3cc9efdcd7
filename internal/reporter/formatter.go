package reporter

import (
	"regexp"
	"strings"

	"golang.org/x/term"
)

const (
	SEPARATOR_CHAR       = "-"
	HEAVY_SEPARATOR_CHAR = "="

	defaultWidth = 70
)

var (
	// ANSI escape code cleaner
	ansiCleaner = regexp.MustCompile(`(\x9B|\x1B\[)[0-?]*[ -\/]*[@-~]`)

	// ANSI non-color escape code cleaner, matches only control codes
	ansiControlCleaner = regexp.MustCompile(`(\x9B|\x1B\[)[0-?]*[ -\/]*[@-ln-~]`)
)

// Removes cursor movement and other control sequences from text written by
// test cases. Colors are removed too, unless the report itself is colored.
func cleanText(s string, colored bool) string {
	if colored {
		return ansiControlCleaner.ReplaceAllString(s, "")
	}
	return ansiCleaner.ReplaceAllString(s, "")
}

// Returns the width of the terminal behind fd. If it cannot be determined, it
// returns the default width.
func termWidth(fd int) int {
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Returns a separator line with a title.
// The title is more or less left aligned.
//
// Example:
//
//	--- FAIL: test_panels.opens_panel -------------------------
func separatorWithTitle(title string, width int) string {
	preTitle := "--- "
	titleWidth := len(title) + len(preTitle)
	separatorWidth := width - titleWidth - 1
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	return preTitle + title + " " + strings.Repeat(SEPARATOR_CHAR, separatorWidth)
}

func separator(char string, width int) string {
	return strings.Repeat(char, width)
}

func simpleWordWrap(text string, maxWidth int) []string {
	lines := make([]string, 0)

	// Split the text into words
	words := strings.Split(text, " ")
	// Initialize the current line to the first word
	currentLine := words[0]
	for _, word := range words[1:] {
		// Check if adding the next word exceeds the max width
		if (len(currentLine) + len(word) + 1) > maxWidth {
			lines = append(lines, currentLine)
			currentLine = ""
		}

		// Add the word to the current line
		if currentLine != "" {
			currentLine += " "
		}

		currentLine += word
	}

	// Add the last line if it's not empty
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}
