package studio

import (
	"golang.org/x/text/language"
)

// Messages holds the user-facing strings of one locale.
type Messages struct {
	Tag language.Tag

	Placeholder     string
	Progress        string
	GenerateLabel   string
	GeneratingLabel string
	DownloadLabel   string
	ImageAlt        string
	ErrorHeading    string

	TitleRequired      string
	MissingCredentials string
	InvalidStyle       string
	NoImageReturned    string
	GenerationFailed   string
}

var (
	japanese = Messages{
		Tag:                language.Japanese,
		Placeholder:        "ここに画像が出力されます",
		Progress:           "AIが画像を生成中です...",
		GenerateLabel:      "画像を生成",
		GeneratingLabel:    "生成中...",
		DownloadLabel:      "ダウンロード",
		ImageAlt:           "生成された画像",
		ErrorHeading:       "エラーが発生しました:",
		TitleRequired:      "タイトルを入力してください。",
		MissingCredentials: "API_KEYが設定されていません。",
		InvalidStyle:       "選択されたスタイルは利用できません。",
		NoImageReturned:    "AIから画像が返されませんでした。",
		GenerationFailed:   "画像の生成中にエラーが発生しました。",
	}
	english = Messages{
		Tag:                language.English,
		Placeholder:        "Your image will appear here",
		Progress:           "The AI is generating your image...",
		GenerateLabel:      "Generate image",
		GeneratingLabel:    "Generating...",
		DownloadLabel:      "Download",
		ImageAlt:           "Generated image",
		ErrorHeading:       "An error occurred:",
		TitleRequired:      "Please enter a title (title required).",
		MissingCredentials: "API_KEY is not set (missing credentials).",
		InvalidStyle:       "The selected style is not available.",
		NoImageReturned:    "The AI did not return an image.",
		GenerationFailed:   "An error occurred while generating the image.",
	}
)

var (
	supportedMessages = []Messages{japanese, english}
	localeMatcher     = language.NewMatcher([]language.Tag{language.Japanese, language.English})
)

// MessagesFor picks the closest supported locale; Japanese is the default.
func MessagesFor(tags ...language.Tag) Messages {
	if len(tags) == 0 {
		return japanese
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return japanese
	}
	return supportedMessages[idx]
}

// MessagesForHeader resolves an Accept-Language header value.
func MessagesForHeader(acceptLanguage string, fallback language.Tag) Messages {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return MessagesFor(fallback)
	}
	return MessagesFor(append(tags, fallback)...)
}

func (m Messages) Japanese() bool {
	base, _ := m.Tag.Base()
	jaBase, _ := language.Japanese.Base()
	return base == jaBase
}
