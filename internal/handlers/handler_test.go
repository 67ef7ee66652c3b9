package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"anime-thumbnail-studio/internal/session"
	"anime-thumbnail-studio/internal/studio"
	"anime-thumbnail-studio/internal/telegram"
	"anime-thumbnail-studio/internal/thumbnail"
)

type sent struct {
	kind     string
	chatID   int64
	text     string
	filename string
	keyboard telegram.Keyboard
	image    thumbnail.Image
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sent
	answers   []string
	answerErr error
}

func (m *fakeMessenger) record(s sent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *fakeMessenger) SendText(chatID int64, text string) error {
	m.record(sent{kind: "text", chatID: chatID, text: text})
	return nil
}

func (m *fakeMessenger) SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error) {
	m.record(sent{kind: "panel", chatID: chatID, text: text, keyboard: kb})
	return 1, nil
}

func (m *fakeMessenger) AnswerCallback(callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	return m.answerErr
}

func (m *fakeMessenger) SendPhoto(chatID int64, img thumbnail.Image, caption string) error {
	m.record(sent{kind: "photo", chatID: chatID, text: caption, image: img})
	return nil
}

func (m *fakeMessenger) SendDocument(chatID int64, filename string, img thumbnail.Image, caption string) error {
	m.record(sent{kind: "document", chatID: chatID, filename: filename, image: img})
	return nil
}

func (m *fakeMessenger) SendTyping(int64) {}

func (m *fakeMessenger) last(kind string) (sent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sent{}, false
}

func (m *fakeMessenger) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type fakeGenerator struct {
	images []thumbnail.Image
	err    error
	calls  int
}

func (g *fakeGenerator) GenerateImages(context.Context, string, thumbnail.GenerateOptions) ([]thumbnail.Image, error) {
	g.calls++
	return g.images, g.err
}

func newTestHandler(gen studio.Generator) (*Handler, *fakeMessenger) {
	m := &fakeMessenger{}
	h := New(Options{
		Messenger:     m,
		Sessions:      session.NewStore(session.Options{}),
		NewController: NewControllerFunc(gen, nil),
		DefaultLocale: language.Japanese,
	})
	return h, m
}

func command(chatID int64, lang, text string) telegram.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return telegram.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, LanguageCode: lang},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func plainText(chatID int64, lang, text string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, LanguageCode: lang},
	}}
}

func callback(chatID int64, lang, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID, LanguageCode: lang},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func buttons(kb telegram.Keyboard) []string {
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		action string
		arg    string
		ok     bool
	}{
		{"ts:style:パンク", actionStyle, "パンク", true},
		{"ts:gen", actionGenerate, "", true},
		{"ts:dl", actionDownload, "", true},
		{"ts:style:", "", "", false},
		{"ts:gen:extra", "", "", false},
		{"pv:1:generate", "", "", false},
		{"ts:unknown", "", "", false},
		{"", "", "", false},
	}

	for _, tc := range tests {
		action, arg, ok := parseCallback(tc.data)
		if action != tc.action || arg != tc.arg || ok != tc.ok {
			t.Errorf("parseCallback(%q) = %q, %q, %v", tc.data, action, arg, ok)
		}
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	for _, s := range thumbnail.Styles() {
		if data := callbackData(actionStyle, s.Key); len(data) > 64 {
			t.Fatalf("callback data %q is %d bytes", data, len(data))
		}
	}
}

func TestStartShowsPanel(t *testing.T) {
	h, m := newTestHandler(nil)

	if err := h.HandleUpdate(context.Background(), command(1, "ja", "/start")); err != nil {
		t.Fatal(err)
	}
	intro, ok := m.last("text")
	if !ok || !strings.Contains(intro.text, "/generate") {
		t.Fatalf("intro = %+v", intro)
	}
	panel, ok := m.last("panel")
	if !ok {
		t.Fatal("no panel sent")
	}
	if !strings.Contains(panel.text, "（未設定）") || !strings.Contains(panel.text, "ここに画像が出力されます") {
		t.Fatalf("panel text = %q", panel.text)
	}
	got := buttons(panel.keyboard)
	if len(got) != 4 {
		t.Fatalf("buttons = %v, want only the four styles", got)
	}
}

func TestTitleStyleGenerateDownload(t *testing.T) {
	payload := []byte("jpeg-bytes")
	gen := &fakeGenerator{images: []thumbnail.Image{{Bytes: payload, MIMEType: "image/jpeg"}}}
	h, m := newTestHandler(gen)
	ctx := context.Background()

	if err := h.HandleUpdate(ctx, plainText(7, "en", "Night Drive")); err != nil {
		t.Fatal(err)
	}
	panel, _ := m.last("panel")
	if !strings.Contains(panel.text, "Night Drive") {
		t.Fatalf("panel = %q", panel.text)
	}
	if !contains(buttons(panel.keyboard), callbackData(actionGenerate)) {
		t.Fatalf("generate button missing: %v", buttons(panel.keyboard))
	}

	if err := h.HandleUpdate(ctx, command(7, "en", "/style punk")); err != nil {
		t.Fatal(err)
	}
	panel, _ = m.last("panel")
	if !strings.Contains(panel.text, "Style: Punk") {
		t.Fatalf("panel = %q", panel.text)
	}

	if err := h.HandleUpdate(ctx, callback(7, "en", callbackData(actionGenerate))); err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d", gen.calls)
	}
	photo, ok := m.last("photo")
	if !ok || string(photo.image.Bytes) != string(payload) {
		t.Fatalf("photo = %+v", photo)
	}
	if photo.text != "サムネイル_night_drive.jpg" {
		t.Fatalf("caption = %q", photo.text)
	}
	panel, _ = m.last("panel")
	if !contains(buttons(panel.keyboard), callbackData(actionDownload)) {
		t.Fatalf("download button missing: %v", buttons(panel.keyboard))
	}

	if err := h.HandleUpdate(ctx, command(7, "en", "/download")); err != nil {
		t.Fatal(err)
	}
	doc, ok := m.last("document")
	if !ok || doc.filename != "サムネイル_night_drive.jpg" || string(doc.image.Bytes) != string(payload) {
		t.Fatalf("document = %+v", doc)
	}
}

func TestGenerateWithoutTitle(t *testing.T) {
	gen := &fakeGenerator{}
	h, m := newTestHandler(gen)

	if err := h.HandleUpdate(context.Background(), command(3, "en", "/generate")); err != nil {
		t.Fatal(err)
	}
	if gen.calls != 0 {
		t.Fatal("generator called without a title")
	}
	msg, _ := m.last("text")
	if !strings.Contains(msg.text, "Please enter a title (title required).") {
		t.Fatalf("error message = %q", msg.text)
	}
}

func TestGenerateMissingCredentials(t *testing.T) {
	h, m := newTestHandler(nil)
	ctx := context.Background()

	_ = h.HandleUpdate(ctx, command(4, "ja", "/title 夏祭り"))
	if err := h.HandleUpdate(ctx, command(4, "ja", "/generate")); err != nil {
		t.Fatal(err)
	}
	msg, _ := m.last("text")
	if !strings.Contains(msg.text, "API_KEYが設定されていません。") {
		t.Fatalf("error message = %q", msg.text)
	}
	if m.count("photo") != 0 {
		t.Fatal("photo sent without credentials")
	}
}

func TestGenerateRemoteFailure(t *testing.T) {
	gen := &fakeGenerator{err: &thumbnail.RemoteError{Message: "quota exceeded"}}
	h, m := newTestHandler(gen)
	ctx := context.Background()

	_ = h.HandleUpdate(ctx, plainText(5, "en", "Sky"))
	if err := h.HandleUpdate(ctx, command(5, "en", "/generate")); err != nil {
		t.Fatal(err)
	}
	msg, _ := m.last("text")
	if !strings.Contains(msg.text, "quota exceeded") {
		t.Fatalf("error message = %q", msg.text)
	}
	panel, _ := m.last("panel")
	if !contains(buttons(panel.keyboard), callbackData(actionGenerate)) {
		t.Fatal("retry should be possible after a failure")
	}
}

func TestDownloadWithoutImage(t *testing.T) {
	h, m := newTestHandler(nil)

	if err := h.HandleUpdate(context.Background(), callback(6, "en", callbackData(actionDownload))); err != nil {
		t.Fatal(err)
	}
	msg, _ := m.last("text")
	if msg.text != botTextEN.NoImage {
		t.Fatalf("reply = %q", msg.text)
	}
	if m.count("document") != 0 {
		t.Fatal("document sent without an image")
	}
}

func TestCallbackAnswerFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	gen := &fakeGenerator{images: []thumbnail.Image{{Bytes: []byte("img")}}}
	m := &fakeMessenger{answerErr: errors.New("query is too old")}
	h := New(Options{
		Messenger:     m,
		NewController: NewControllerFunc(gen, nil),
		Logger:        &logger,
	})
	ctx := context.Background()

	_ = h.HandleUpdate(ctx, plainText(9, "en", "Sky"))
	if err := h.HandleUpdate(ctx, callback(9, "en", callbackData(actionGenerate))); err != nil {
		t.Fatalf("HandleUpdate() error = %v", err)
	}
	if gen.calls != 1 || m.count("photo") != 1 {
		t.Fatalf("generation did not proceed: calls = %d, photos = %d", gen.calls, m.count("photo"))
	}
	if !strings.Contains(logs.String(), "answer callback failed") || !strings.Contains(logs.String(), "query is too old") {
		t.Fatalf("logs = %s", logs.String())
	}
}

func TestUnknownStyle(t *testing.T) {
	h, m := newTestHandler(nil)

	if err := h.HandleUpdate(context.Background(), command(8, "en", "/style sparkly")); err != nil {
		t.Fatal(err)
	}
	msg, _ := m.last("text")
	if !strings.HasPrefix(msg.text, botTextEN.UnknownStyle) || !strings.Contains(msg.text, "パンク") {
		t.Fatalf("reply = %q", msg.text)
	}

	if err := h.HandleUpdate(context.Background(), callback(8, "en", "ts:style:sparkly")); err != nil {
		t.Fatal(err)
	}
	if got := m.answers[len(m.answers)-1]; got != botTextEN.UnknownStyle {
		t.Fatalf("callback answer = %q", got)
	}
}

func TestChatsAreIsolated(t *testing.T) {
	h, m := newTestHandler(nil)
	ctx := context.Background()

	_ = h.HandleUpdate(ctx, plainText(10, "en", "First"))
	_ = h.HandleUpdate(ctx, command(11, "en", "/style"))

	panel, _ := m.last("panel")
	if panel.chatID != 11 || strings.Contains(panel.text, "First") {
		t.Fatalf("panel for chat 11 = %+v", panel)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
