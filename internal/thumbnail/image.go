package thumbnail

import (
	"encoding/base64"
	"strings"
)

const (
	DefaultMIMEType    = "image/jpeg"
	DefaultAspectRatio = "16:9"
)

type GenerateOptions struct {
	Count       int
	MIMEType    string
	AspectRatio string
}

// DefaultGenerateOptions is fixed for every thumbnail request.
var DefaultGenerateOptions = GenerateOptions{
	Count:       1,
	MIMEType:    DefaultMIMEType,
	AspectRatio: DefaultAspectRatio,
}

// Image is a generated image payload. It is never modified after creation.
type Image struct {
	Bytes    []byte
	MIMEType string
}

func (img Image) ContentType() string {
	mimeType := strings.TrimSpace(img.MIMEType)
	if mimeType == "" {
		return DefaultMIMEType
	}
	return mimeType
}

func (img Image) DataURL() string {
	return "data:" + img.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(img.Bytes)
}
