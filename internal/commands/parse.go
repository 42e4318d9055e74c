package commands

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"stock-line-bot/internal/types"
)

// Verb identifies one chat command.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbGreeting
	VerbPing
	VerbHelp
	VerbDomesticQuote
	VerbForeignQuote
	VerbTrack
	VerbUntrack
	VerbList
	VerbDigest
)

var verbNames = map[Verb]string{
	VerbUnknown:       "unknown",
	VerbGreeting:      "greeting",
	VerbPing:          "ping",
	VerbHelp:          "help",
	VerbDomesticQuote: "domestic_quote",
	VerbForeignQuote:  "foreign_quote",
	VerbTrack:         "track",
	VerbUntrack:       "untrack",
	VerbList:          "list",
	VerbDigest:        "digest",
}

func (v Verb) String() string {
	if name, ok := verbNames[v]; ok {
		return name
	}
	return "unknown"
}

// verbAliases maps the words users type to verbs. The Chinese forms are the
// primary ones, English works too.
var verbAliases = map[string]Verb{
	"你好":      VerbGreeting,
	"hello":   VerbGreeting,
	"hi":      VerbGreeting,
	"測試":      VerbPing,
	"ping":    VerbPing,
	"幫助":      VerbHelp,
	"功能":      VerbHelp,
	"help":    VerbHelp,
	"台股":      VerbDomesticQuote,
	"tw":      VerbDomesticQuote,
	"美股":      VerbForeignQuote,
	"us":      VerbForeignQuote,
	"追蹤":      VerbTrack,
	"track":   VerbTrack,
	"取消":      VerbUntrack,
	"untrack": VerbUntrack,
	"清單":      VerbList,
	"追蹤清單":    VerbList,
	"list":    VerbList,
	"週報":      VerbDigest,
	"周報":      VerbDigest,
	"週報預覽":    VerbDigest,
	"預覽":      VerbDigest,
	"预览":      VerbDigest,
	"digest":  VerbDigest,
	"preview": VerbDigest,
}

// Command is one parsed chat message.
type Command struct {
	Verb Verb
	Args []string
}

// Parse splits a chat message into a command. The first token picks the
// verb, the remaining tokens become arguments.
func Parse(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{Verb: VerbUnknown}
	}

	verb, ok := verbAliases[strings.ToLower(fields[0])]
	if !ok {
		return Command{Verb: VerbUnknown, Args: fields[1:]}
	}
	return Command{Verb: verb, Args: fields[1:]}
}

// ParseTrackArgs validates track arguments: TICKER THRESHOLD DIRECTION.
func ParseTrackArgs(args []string) (types.AlertRecord, error) {
	if len(args) != 3 {
		return types.AlertRecord{}, errors.Errorf("track wants 3 arguments, got %d", len(args))
	}

	ticker := strings.ToUpper(args[0])

	threshold, err := decimal.NewFromString(args[1])
	if err != nil {
		return types.AlertRecord{}, errors.Wrapf(err, "bad threshold %q", args[1])
	}
	if threshold.LessThanOrEqual(decimal.Zero) {
		return types.AlertRecord{}, errors.Errorf("threshold %s is not positive", threshold)
	}

	direction, err := parseDirection(args[2])
	if err != nil {
		return types.AlertRecord{}, err
	}

	return types.AlertRecord{
		Ticker:    ticker,
		Market:    InferMarket(ticker),
		Threshold: threshold,
		Direction: direction,
	}, nil
}

func parseDirection(word string) (types.Direction, error) {
	switch strings.ToLower(word) {
	case "buy", "買":
		return types.DirectionBuy, nil
	case "sell", "賣":
		return types.DirectionSell, nil
	}
	return "", errors.Errorf("unknown direction %q", word)
}

// InferMarket guesses the market for a bare ticker. All-digit tickers are
// Taiwan listings, anything else is treated as foreign.
func InferMarket(ticker string) types.Market {
	if ticker == "" {
		return types.MarketForeign
	}
	for _, r := range ticker {
		if r < '0' || r > '9' {
			return types.MarketForeign
		}
	}
	return types.MarketDomestic
}
