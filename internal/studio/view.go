package studio

import (
	"strings"

	"anime-thumbnail-studio/internal/thumbnail"
)

type DisplayKind string

const (
	DisplayPlaceholder DisplayKind = "placeholder"
	DisplaySpinner     DisplayKind = "spinner"
	DisplayImage       DisplayKind = "image"
	DisplayError       DisplayKind = "error"
)

type Display struct {
	Kind     DisplayKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Heading  string      `json:"heading,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
	ImageAlt string      `json:"image_alt,omitempty"`
}

type Control struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label,omitempty"`
}

type StyleOption struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// View is what a surface renders. It is derived from State and the inputs
// only, so it can be compared in tests without any rendering surface.
type View struct {
	Status   string        `json:"status"`
	Title    string        `json:"title"`
	Style    string        `json:"style"`
	Styles   []StyleOption `json:"styles"`
	TitleIn  Control       `json:"title_input"`
	StyleIn  Control       `json:"style_select"`
	Generate Control       `json:"generate"`
	Download Control       `json:"download"`
	Display  Display       `json:"display"`
	Filename string        `json:"filename,omitempty"`
}

// ImageURLFunc maps a loaded image to the URL a surface should display.
// Nil means an inline data URL.
type ImageURLFunc func(thumbnail.Image) string

func Render(s State, title, styleKey string, msgs Messages, imageURL ImageURLFunc) View {
	loading := s.Status == Loading
	hasTitle := strings.TrimSpace(title) != ""

	v := View{
		Status:   s.Status.String(),
		Title:    title,
		Style:    styleKey,
		Styles:   styleOptions(styleKey, msgs),
		TitleIn:  Control{Enabled: !loading},
		StyleIn:  Control{Enabled: !loading},
		Generate: Control{Enabled: !loading && hasTitle, Label: msgs.GenerateLabel},
		Download: Control{Enabled: s.Status == Loaded && s.Image != nil, Label: msgs.DownloadLabel},
	}

	switch s.Status {
	case Loading:
		v.Generate.Label = msgs.GeneratingLabel
		v.Display = Display{Kind: DisplaySpinner, Text: msgs.Progress}
	case Loaded:
		if s.Image == nil {
			v.Display = Display{Kind: DisplayPlaceholder, Text: msgs.Placeholder}
			break
		}
		url := ""
		if imageURL != nil {
			url = imageURL(*s.Image)
		} else {
			url = s.Image.DataURL()
		}
		v.Display = Display{Kind: DisplayImage, ImageURL: url, ImageAlt: msgs.ImageAlt}
		v.Filename = thumbnail.DownloadFilename(title)
	case Errored:
		v.Display = Display{Kind: DisplayError, Heading: msgs.ErrorHeading, Text: s.Message}
	default:
		v.Display = Display{Kind: DisplayPlaceholder, Text: msgs.Placeholder}
	}

	return v
}

func styleOptions(selected string, msgs Messages) []StyleOption {
	opts := thumbnail.StyleOptions(msgs.Japanese())
	out := make([]StyleOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, StyleOption{Key: o.Key, Name: o.Name, Selected: o.Key == selected})
	}
	return out
}
