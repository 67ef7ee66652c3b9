package handlers

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anime-thumbnail-studio/internal/studio"
	"anime-thumbnail-studio/internal/thumbnail"
)

const (
	callbackPrefix = "ts"

	actionStyle    = "style"
	actionGenerate = "gen"
	actionDownload = "dl"

	stylesPerRow = 2
)

func callbackData(action string, args ...string) string {
	return strings.Join(append([]string{callbackPrefix, action}, args...), ":")
}

func parseCallback(data string) (action, arg string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	if len(parts) < 2 || parts[0] != callbackPrefix {
		return "", "", false
	}

	switch parts[1] {
	case actionStyle:
		if len(parts) != 3 || parts[2] == "" {
			return "", "", false
		}
		return actionStyle, parts[2], true
	case actionGenerate, actionDownload:
		if len(parts) != 2 {
			return "", "", false
		}
		return parts[1], "", true
	}
	return "", "", false
}

func panelText(v studio.View, text botText) string {
	title := strings.TrimSpace(v.Title)
	if title == "" {
		title = text.NoTitle
	}

	style := v.Style
	for _, s := range v.Styles {
		if s.Selected {
			style = s.Name
		}
	}

	var b strings.Builder
	b.WriteString("🎬 " + text.TitleLabel + ": " + title + "\n")
	b.WriteString("🎨 " + text.StyleLabel + ": " + style + "\n\n")
	switch v.Display.Kind {
	case studio.DisplayError:
		b.WriteString("❌ " + v.Display.Heading + " " + v.Display.Text)
	case studio.DisplayImage:
		b.WriteString("✅ " + v.Filename)
	default:
		b.WriteString(v.Display.Text)
	}
	return b.String()
}

// panelKeyboard mirrors the view: style buttons only while editing is
// allowed, and the action buttons only when their controls are enabled.
func panelKeyboard(v studio.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if v.StyleIn.Enabled {
		var row []tgbotapi.InlineKeyboardButton
		for _, s := range v.Styles {
			label := s.Name
			if s.Selected {
				label = "✓ " + label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionStyle, s.Key)))
			if len(row) == stylesPerRow {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	var actions []tgbotapi.InlineKeyboardButton
	if v.Generate.Enabled {
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData("🎨 "+v.Generate.Label, callbackData(actionGenerate)))
	}
	if v.Download.Enabled {
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData("⬇ "+v.Download.Label, callbackData(actionDownload)))
	}
	if len(actions) > 0 {
		rows = append(rows, actions)
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func styleName(key string, msgs studio.Messages) string {
	for _, o := range thumbnail.StyleOptions(msgs.Japanese()) {
		if o.Key == key {
			return o.Name
		}
	}
	return key
}

func styleList(msgs studio.Messages) string {
	var b strings.Builder
	for _, s := range thumbnail.Styles() {
		b.WriteString("• /style " + s.Key)
		if !msgs.Japanese() {
			b.WriteString(" (" + s.Label + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// resolveStyleKey accepts either a style key or its English label, so
// "/style punk" works on keyboards without Japanese input.
func resolveStyleKey(arg string) string {
	arg = strings.TrimSpace(arg)
	for _, s := range thumbnail.Styles() {
		if s.Key == arg || strings.EqualFold(s.Label, arg) {
			return s.Key
		}
	}
	return arg
}
