package line

import (
	"bytes"
	"context"
	"net/http"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	log "github.com/sirupsen/logrus"

	"stock-line-bot/internal/commands"
	"stock-line-bot/lib/translation"
)

// Handler serves the webhook endpoints exposed to the LINE platform.
type Handler struct {
	bot        *Bot
	dispatcher *commands.Dispatcher

	// OnMessage is called for every text message accepted for dispatch.
	OnMessage func(userID string)
}

// NewHandler creates a webhook handler around a bot and its dispatcher.
func NewHandler(bot *Bot, dispatcher *commands.Dispatcher) *Handler {
	return &Handler{
		bot:        bot,
		dispatcher: dispatcher,
	}
}

// Callback validates and processes webhook calls from the LINE platform.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	events, err := linebot.ParseRequest(h.bot.Config.ChannelSecret, r)
	if err != nil {
		if err == linebot.ErrInvalidSignature {
			log.Warnf("⚠️ Rejected webhook call with a bad signature from %s", r.RemoteAddr)
			w.WriteHeader(http.StatusBadRequest)
		} else {
			log.Errorf("Failed to parse webhook request: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	if h.bot.Config.Debug {
		log.Debug(spew.Sdump(events))
	}

	for _, event := range events {
		h.handleEvent(r.Context(), event)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Status reports liveness on the root path.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(translation.Translate("LINE Bot is running")))
}

func (h *Handler) handleEvent(ctx context.Context, event *linebot.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", rec, stackTrace)
		}
	}()

	if event.Type != linebot.EventTypeMessage {
		log.Debugf("ignoring %s event", event.Type)
		return
	}

	message, ok := event.Message.(*linebot.TextMessage)
	if !ok {
		log.Debug("Received non-text message")
		return
	}

	var userID string
	if event.Source != nil {
		userID = event.Source.UserID
	}

	if h.OnMessage != nil {
		h.OnMessage(userID)
	}

	reply := h.dispatcher.Dispatch(ctx, userID, message.Text)
	if reply == "" {
		return
	}

	if err := h.bot.ReplyText(ctx, event.ReplyToken, reply); err != nil {
		log.Errorf("Failed to send reply: %v", err)
	}
}
