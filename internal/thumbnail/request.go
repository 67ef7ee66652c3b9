package thumbnail

import "strings"

// Request is a validated generation request. Build it with NewRequest.
type Request struct {
	title    string
	styleKey string
}

func NewRequest(title, styleKey string) (Request, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Request{}, ErrEmptyTitle
	}
	if _, ok := styleCatalog[styleKey]; !ok {
		return Request{}, ErrInvalidStyleKey
	}
	return Request{title: title, styleKey: styleKey}, nil
}

func (r Request) Title() string    { return r.title }
func (r Request) StyleKey() string { return r.styleKey }

func (r Request) Prompt() (string, error) {
	return BuildPrompt(r.title, r.styleKey)
}
