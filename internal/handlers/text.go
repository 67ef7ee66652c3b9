package handlers

import "anime-thumbnail-studio/internal/studio"

// botText holds the chat-only strings; the shared UI strings live in
// studio.Messages.
type botText struct {
	Intro        string
	TitleUsage   string
	TitleLabel   string
	StyleLabel   string
	NoTitle      string
	Busy         string
	NoImage      string
	UnknownStyle string
	Unknown      string
}

var (
	botTextJA = botText{
		Intro: "🎬 アニメ風サムネイルメーカー\n\n" +
			"タイトルを送信してスタイルを選び、画像を生成してください。\n\n" +
			"/title <タイトル> - タイトルを設定\n" +
			"/style - スタイルを選択\n" +
			"/generate - 画像を生成\n" +
			"/download - 画像をファイルで受け取る",
		TitleUsage:   "例: /title 夏休みの冒険",
		TitleLabel:   "タイトル",
		StyleLabel:   "スタイル",
		NoTitle:      "（未設定）",
		Busy:         "画像を生成中です。完了までお待ちください。",
		NoImage:      "まだ画像がありません。先に /generate を実行してください。",
		UnknownStyle: "不明なスタイルです。",
		Unknown:      "不明なコマンドです。/help を参照してください。",
	}
	botTextEN = botText{
		Intro: "🎬 Anime Thumbnail Studio\n\n" +
			"Send a title, pick a style and generate your thumbnail.\n\n" +
			"/title <text> - set the title\n" +
			"/style - choose a style\n" +
			"/generate - generate the image\n" +
			"/download - get the image as a file",
		TitleUsage:   "Example: /title Summer Adventure",
		TitleLabel:   "Title",
		StyleLabel:   "Style",
		NoTitle:      "(not set)",
		Busy:         "An image is being generated. Please wait until it finishes.",
		NoImage:      "There is no image yet. Run /generate first.",
		UnknownStyle: "Unknown style.",
		Unknown:      "Unknown command. See /help.",
	}
)

func textFor(msgs studio.Messages) botText {
	if msgs.Japanese() {
		return botTextJA
	}
	return botTextEN
}
