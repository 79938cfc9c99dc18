package knowledge

import (
	"regexp"
	"strings"
)

var (
	noiseLines = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^page\s*\d+(\s*of\s*\d+)?$`), // "Page 1", "Page 1 of 5"
		regexp.MustCompile(`^\d+\s*/\s*\d+$`),               // "1/5"
		regexp.MustCompile(`^\d+$`),                          // standalone numbers
	}
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Clean strips page markers, page numbers and PDF artifacts and normalises
// whitespace so the text is fit for a prompt.
func Clean(raw string) string {
	if raw == "" {
		return raw
	}

	text := strings.ReplaceAll(raw, PageBreak, "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	text = removePageNumbers(text)
	text = removeArtifacts(text)
	return normalizeWhitespace(text)
}

func removePageNumbers(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		noise := false
		for _, p := range noiseLines {
			if p.MatchString(trimmed) {
				noise = true
				break
			}
		}
		if !noise {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func removeArtifacts(text string) string {
	return strings.NewReplacer("\ufffd", "", "\u00ad", "", "©", "", "™", "", "®", "").Replace(text)
}

func normalizeWhitespace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// TruncateWords keeps the first n whitespace-separated words.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
