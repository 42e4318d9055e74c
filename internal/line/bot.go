package line

import (
	"context"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/pkg/errors"

	"stock-line-bot/internal/types"
)

// NewBot creates a new LINE bot client
func NewBot(c BotConfig) (*Bot, error) {
	client, err := linebot.New(c.ChannelSecret, c.ChannelToken)
	if err != nil {
		return nil, errors.Wrap(err, "could not create line bot")
	}

	return &Bot{
		Client: client,
		Config: c,
	}, nil
}

var _ types.TextSender = (*Bot)(nil)

// SendText pushes a text message to a user outside the reply window.
func (b *Bot) SendText(ctx context.Context, userID string, text string) error {
	_, err := b.Client.PushMessage(userID, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return errors.Wrapf(err, "could not push message to %s", userID)
}

// ReplyText answers an event through its one-time reply token.
func (b *Bot) ReplyText(ctx context.Context, replyToken string, text string) error {
	_, err := b.Client.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return errors.Wrap(err, "could not send reply")
}
