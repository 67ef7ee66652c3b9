package telegram

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"anime-thumbnail-studio/internal/thumbnail"
)

const (
	maxTextBytes    = 4096
	maxCaptionBytes = 1024
)

type Options struct {
	Token      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	Debug      bool
}

type Client struct {
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{bot: bot, logger: logger}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type (
	Update   = tgbotapi.Update
	Keyboard = tgbotapi.InlineKeyboardMarkup
)

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	}
	u.AllowedUpdates = []string{"message", "callback_query"}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadPhoto)); err != nil {
		c.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("chat action failed")
	}
}

func (c *Client) SendText(chatID int64, text string) error {
	for _, p := range splitByBytes(text, maxTextBytes) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

// SendTextWithKeyboard sends a single message carrying an inline keyboard
// and returns its id.
func (c *Client) SendTextWithKeyboard(chatID int64, text string, kb Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncateByBytes(text, maxTextBytes))
	if len(kb.InlineKeyboard) > 0 {
		msg.ReplyMarkup = kb
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) AnswerCallback(callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := c.bot.Request(cb)
	return err
}

func (c *Client) SendPhoto(chatID int64, img thumbnail.Image, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "thumbnail" + extensionFor(img.ContentType()),
		Bytes: img.Bytes,
	})
	photo.Caption = truncateByBytes(caption, maxCaptionBytes)
	_, err := c.bot.Send(photo)
	return err
}

// SendDocument sends the image uncompressed under filename, which is what a
// user gets when saving it.
func (c *Client) SendDocument(chatID int64, filename string, img thumbnail.Image, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: img.Bytes,
	})
	doc.Caption = truncateByBytes(caption, maxCaptionBytes)
	_, err := c.bot.Send(doc)
	return err
}

func extensionFor(mimeType string) string {
	if mimeType == thumbnail.DefaultMIMEType {
		return thumbnail.DownloadExtension
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return thumbnail.DownloadExtension
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		if buf.Len() > 0 && buf.Len()+utf8.RuneLen(r) > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		if buf.Len()+utf8.RuneLen(r) > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
