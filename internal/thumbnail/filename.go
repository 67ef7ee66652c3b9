package thumbnail

import "strings"

const (
	DownloadLabel     = "サムネイル"
	DownloadExtension = ".jpg"
	fallbackFileStem  = "image"
)

// DownloadFilename derives the saved file name from the title:
// every rune outside [A-Za-z0-9] becomes '_' and the result is lower-cased.
func DownloadFilename(title string) string {
	stem := sanitizeTitle(title)
	if stem == "" {
		stem = fallbackFileStem
	}
	return DownloadLabel + "_" + stem + DownloadExtension
}

func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
