package line

import "github.com/line/line-bot-sdk-go/v7/linebot"

// BotConfig configuration of the bot
type BotConfig struct {
	ChannelSecret string
	ChannelToken  string
	Debug         bool
}

// Bot LINE Messaging API client
type Bot struct {
	Client *linebot.Client
	Config BotConfig
}
