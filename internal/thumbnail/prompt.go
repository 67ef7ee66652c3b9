package thumbnail

import (
	"fmt"
	"strings"
)

// BuildPrompt turns a title and a style key into the generator prompt.
// The title and the style description are embedded verbatim.
func BuildPrompt(title, styleKey string) (string, error) {
	style, ok := styleCatalog[styleKey]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStyleKey, styleKey)
	}

	var b strings.Builder
	b.Grow(512)

	b.WriteString("Create a high-quality, professional anime-style image suitable for a video thumbnail. ")
	b.WriteString("The theme is \"" + title + "\". ")
	b.WriteString("The specific art style should be: " + style.Description + " ")
	b.WriteString("Use a widescreen " + DefaultAspectRatio + " composition with high contrast, so it reads well at small sizes. ")
	b.WriteString("The image must be visually striking, with vibrant colors and a clean composition. ")
	b.WriteString("It should not contain any text, letters, captions, logos or watermarks.")

	return b.String(), nil
}
