package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"anime-thumbnail-studio/internal/session"
	"anime-thumbnail-studio/internal/studio"
	"anime-thumbnail-studio/internal/telegram"
	"anime-thumbnail-studio/internal/thumbnail"
)

// Messenger is the part of the Telegram client the handler needs.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhoto(chatID int64, img thumbnail.Image, caption string) error
	SendDocument(chatID int64, filename string, img thumbnail.Image, caption string) error
	SendTyping(chatID int64)
}

type Options struct {
	Messenger Messenger
	Sessions  *session.Store
	// NewController builds a chat's controller once its locale is known.
	NewController func(msgs studio.Messages) *studio.Controller
	DefaultLocale language.Tag
	Logger        *zerolog.Logger
}

type Handler struct {
	tg            Messenger
	sessions      *session.Store
	newController func(msgs studio.Messages) *studio.Controller
	defaultLocale language.Tag
	logger        zerolog.Logger
}

func New(opts Options) *Handler {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	locale := opts.DefaultLocale
	if locale == language.Und {
		locale = language.Japanese
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	newController := opts.NewController
	if newController == nil {
		newController = NewControllerFunc(nil, &logger)
	}

	return &Handler{
		tg:            opts.Messenger,
		sessions:      sessions,
		newController: newController,
		defaultLocale: locale,
		logger:        logger,
	}
}

// NewControllerFunc is the controller factory used by cmd/bot. The chat
// surface never shows data URLs, so image URLs are left empty.
func NewControllerFunc(gen studio.Generator, logger *zerolog.Logger) func(studio.Messages) *studio.Controller {
	return func(msgs studio.Messages) *studio.Controller {
		return studio.New(studio.Options{
			Generator: gen,
			Messages:  &msgs,
			Logger:    logger,
			ImageURL:  func(thumbnail.Image) string { return "" },
		})
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	ctrl := h.controller(chatID, msg.From)

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, ctrl, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	}

	if text := strings.TrimSpace(msg.Text); text != "" {
		return h.setTitle(chatID, ctrl, text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, ctrl *studio.Controller, command, args string) error {
	text := textFor(ctrl.Messages())

	switch command {
	case "start", "help":
		if err := h.tg.SendText(chatID, text.Intro); err != nil {
			return err
		}
		return h.sendPanel(chatID, ctrl)
	case "title":
		if args == "" {
			return h.tg.SendText(chatID, text.TitleUsage)
		}
		return h.setTitle(chatID, ctrl, args)
	case "style":
		if args == "" {
			return h.sendPanel(chatID, ctrl)
		}
		return h.setStyle(chatID, ctrl, args)
	case "generate":
		return h.generate(ctx, chatID, ctrl)
	case "download":
		return h.download(chatID, ctrl)
	default:
		return h.tg.SendText(chatID, text.Unknown)
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.Message.Chat == nil {
		return nil
	}
	action, arg, ok := parseCallback(q.Data)
	if !ok {
		return h.tg.AnswerCallback(q.ID, "", false)
	}

	chatID := q.Message.Chat.ID
	ctrl := h.controller(chatID, q.From)
	msgs := ctrl.Messages()

	switch action {
	case actionStyle:
		if err := ctrl.SetStyle(arg); err != nil {
			return h.answerError(q.ID, ctrl, err)
		}
		h.answer(q.ID, styleName(arg, msgs))
		return h.sendPanel(chatID, ctrl)
	case actionGenerate:
		h.answer(q.ID, msgs.GeneratingLabel)
		return h.generate(ctx, chatID, ctrl)
	case actionDownload:
		h.answer(q.ID, msgs.DownloadLabel)
		return h.download(chatID, ctrl)
	}
	return nil
}

// answer acknowledges a button press. A failed acknowledgement only leaves
// the client spinner running, so the action itself still proceeds.
func (h *Handler) answer(callbackID, text string) {
	if err := h.tg.AnswerCallback(callbackID, text, false); err != nil {
		h.logger.Debug().Err(err).Str("callback_id", callbackID).Msg("answer callback failed")
	}
}

func (h *Handler) setTitle(chatID int64, ctrl *studio.Controller, title string) error {
	if err := ctrl.SetTitle(title); err != nil {
		return h.replyError(chatID, ctrl, err)
	}
	return h.sendPanel(chatID, ctrl)
}

func (h *Handler) setStyle(chatID int64, ctrl *studio.Controller, key string) error {
	if err := ctrl.SetStyle(resolveStyleKey(key)); err != nil {
		return h.replyError(chatID, ctrl, err)
	}
	return h.sendPanel(chatID, ctrl)
}

// generate runs the attempt inline; the update loop already bounds how many
// handlers run at once.
func (h *Handler) generate(ctx context.Context, chatID int64, ctrl *studio.Controller) error {
	pending, err := ctrl.Begin()
	if errors.Is(err, studio.ErrGenerationInFlight) {
		return h.tg.SendText(chatID, textFor(ctrl.Messages()).Busy)
	}
	if err != nil {
		return h.sendResult(chatID, ctrl)
	}

	h.tg.SendTyping(chatID)
	if err := h.tg.SendText(chatID, ctrl.View().Display.Text); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("progress message failed")
	}

	if err := pending.Run(ctx); err != nil {
		h.logger.Info().Err(err).Int64("chat_id", chatID).Msg("generation ended with error")
	}
	return h.sendResult(chatID, ctrl)
}

func (h *Handler) sendResult(chatID int64, ctrl *studio.Controller) error {
	v := ctrl.View()

	switch v.Display.Kind {
	case studio.DisplayImage:
		dl, ok := ctrl.Download()
		if !ok {
			return h.sendPanel(chatID, ctrl)
		}
		if err := h.tg.SendPhoto(chatID, dl.Image, dl.Filename); err != nil {
			return err
		}
	case studio.DisplayError:
		if err := h.tg.SendText(chatID, "❌ "+v.Display.Heading+"\n"+v.Display.Text); err != nil {
			return err
		}
	}
	return h.sendPanel(chatID, ctrl)
}

func (h *Handler) download(chatID int64, ctrl *studio.Controller) error {
	dl, ok := ctrl.Download()
	if !ok {
		return h.tg.SendText(chatID, textFor(ctrl.Messages()).NoImage)
	}
	return h.tg.SendDocument(chatID, dl.Filename, dl.Image, "")
}

func (h *Handler) sendPanel(chatID int64, ctrl *studio.Controller) error {
	v := ctrl.View()
	_, err := h.tg.SendTextWithKeyboard(chatID, panelText(v, textFor(ctrl.Messages())), panelKeyboard(v))
	return err
}

func (h *Handler) replyError(chatID int64, ctrl *studio.Controller, err error) error {
	text := textFor(ctrl.Messages())
	switch {
	case errors.Is(err, studio.ErrGenerationInFlight):
		return h.tg.SendText(chatID, text.Busy)
	case errors.Is(err, thumbnail.ErrInvalidStyleKey):
		return h.tg.SendText(chatID, text.UnknownStyle+"\n"+styleList(ctrl.Messages()))
	default:
		return err
	}
}

func (h *Handler) answerError(callbackID string, ctrl *studio.Controller, err error) error {
	text := textFor(ctrl.Messages())
	switch {
	case errors.Is(err, studio.ErrGenerationInFlight):
		return h.tg.AnswerCallback(callbackID, text.Busy, true)
	case errors.Is(err, thumbnail.ErrInvalidStyleKey):
		return h.tg.AnswerCallback(callbackID, text.UnknownStyle, true)
	default:
		return err
	}
}

func (h *Handler) controller(chatID int64, from *tgbotapi.User) *studio.Controller {
	key := "tg:" + strconv.FormatInt(chatID, 10)
	sess := h.sessions.GetOrCreate(key, func() *studio.Controller {
		return h.newController(h.messagesFor(from))
	})
	return sess.Controller
}

func (h *Handler) messagesFor(from *tgbotapi.User) studio.Messages {
	if from != nil && from.LanguageCode != "" {
		if tag, err := language.Parse(from.LanguageCode); err == nil {
			return studio.MessagesFor(tag, h.defaultLocale)
		}
	}
	return studio.MessagesFor(h.defaultLocale)
}
