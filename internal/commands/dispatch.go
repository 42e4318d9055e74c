package commands

import (
	"context"
	"fmt"
	"stock-line-bot/internal/types"
	"stock-line-bot/lib/helpers"
	"stock-line-bot/lib/translation"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DigestComposer builds the weekly report body for one user.
type DigestComposer interface {
	Compose(ctx context.Context, userID string) (string, error)
}

// Dispatcher routes parsed commands to their handlers and renders replies.
// Every path ends in non-empty reply text, errors never escape to the chat
// platform.
type Dispatcher struct {
	store    types.AlertStore
	quotes   types.QuoteProvider
	composer DigestComposer
	location *time.Location

	// OnCommand, when set, observes every dispatched verb.
	OnCommand func(verb Verb)
}

func NewDispatcher(store types.AlertStore, quotes types.QuoteProvider, composer DigestComposer, location *time.Location) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{
		store:    store,
		quotes:   quotes,
		composer: composer,
		location: location,
	}
}

// Dispatch handles one inbound text message and returns the reply.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, text string) string {
	cmd := Parse(text)
	log.Debugf("dispatching %s from %s", cmd.Verb, userID)

	if d.OnCommand != nil {
		d.OnCommand(cmd.Verb)
	}

	switch cmd.Verb {
	case VerbGreeting:
		return translation.Translate("Hello! I'm your stock assistant 📈")
	case VerbPing:
		return translation.Translate("Test successful! Bot is up and running ✅")
	case VerbHelp, VerbUnknown:
		return translation.Translate("Command help message")
	case VerbDomesticQuote:
		return d.handleQuote(ctx, types.MarketDomestic, cmd.Args)
	case VerbForeignQuote:
		return d.handleQuote(ctx, types.MarketForeign, cmd.Args)
	case VerbTrack:
		return d.handleTrack(ctx, userID, cmd.Args)
	case VerbUntrack:
		return d.handleUntrack(userID, cmd.Args)
	case VerbList:
		return d.handleList(userID)
	case VerbDigest:
		return d.handleDigest(ctx, userID)
	}

	return translation.Translate("Command help message")
}

func (d *Dispatcher) handleQuote(ctx context.Context, market types.Market, args []string) string {
	if len(args) != 1 {
		if market == types.MarketDomestic {
			return translation.Translate("domestic_quote_usage")
		}
		return translation.Translate("foreign_quote_usage")
	}

	quote, err := d.quotes.Quote(ctx, market, args[0])
	if err != nil {
		if errors.Is(err, types.ErrQuoteNotFound) {
			log.Debugf("quote lookup: %v", err)
			return fmt.Sprintf(translation.Translate("Ticker %s not found, please check the symbol 🔍"), strings.ToUpper(args[0]))
		}
		log.Errorf("quote lookup failed: %v", err)
		return translation.Translate("Market data is unavailable right now, please try again later 🙏")
	}

	return d.renderQuote(quote)
}

func (d *Dispatcher) renderQuote(quote types.Quote) string {
	return fmt.Sprintf(
		translation.Translate("quote_reply_format"),
		quote.Name,
		quote.Symbol,
		helpers.FormatPrice(quote.Price),
		quote.Currency,
		helpers.FormatChangePct(quote.ChangePct),
		helpers.FormatVolume(quote.Volume),
		helpers.FormatDate(quote.Time.In(d.location)),
	)
}

func (d *Dispatcher) handleTrack(ctx context.Context, userID string, args []string) string {
	record, err := ParseTrackArgs(args)
	if err != nil {
		log.Debugf("track arguments rejected: %v", err)
		return translation.Translate("track_usage")
	}
	record.UserID = userID

	// Resolve the ticker first so subscriptions to unknown symbols never
	// reach the store.
	quote, err := d.quotes.Quote(ctx, record.Market, record.Ticker)
	if err != nil {
		if errors.Is(err, types.ErrQuoteNotFound) {
			return fmt.Sprintf(translation.Translate("Ticker %s not found, please check the symbol 🔍"), record.Ticker)
		}
		log.Errorf("track lookup failed: %v", err)
		return translation.Translate("Market data is unavailable right now, please try again later 🙏")
	}

	if _, err := d.store.InsertAlert(record); err != nil {
		log.Errorf("failed to save alert: %v", err)
		return translation.Translate("Could not save your alert, please try again later 🙏")
	}

	return fmt.Sprintf(
		translation.Translate("track_success_format"),
		record.Ticker,
		directionLabel(record.Direction),
		helpers.FormatPrice(record.Threshold),
		helpers.FormatPrice(quote.Price),
	)
}

func (d *Dispatcher) handleUntrack(userID string, args []string) string {
	if len(args) != 1 {
		return translation.Translate("untrack_usage")
	}

	ticker := strings.ToUpper(args[0])
	deleted, err := d.store.DeleteAlertsByTicker(userID, ticker)
	if err != nil {
		log.Errorf("failed to delete alerts: %v", err)
		return translation.Translate("Could not update your alerts, please try again later 🙏")
	}
	if deleted == 0 {
		return fmt.Sprintf(translation.Translate("You are not tracking %s"), ticker)
	}

	return fmt.Sprintf(translation.Translate("Stopped tracking %s, removed %d alerts"), ticker, deleted)
}

func (d *Dispatcher) handleList(userID string) string {
	alerts, err := d.store.GetAlertsByUserID(userID)
	if err != nil {
		log.Errorf("failed to fetch alerts: %v", err)
		return translation.Translate("Could not load your alerts, please try again later 🙏")
	}

	if len(alerts) == 0 {
		return translation.Translate("You are not tracking any stocks yet, start with the track command 📌")
	}

	var list strings.Builder
	list.WriteString("📋 " + translation.Translate("Your tracked stocks:"))
	list.WriteString("\n")
	for _, alert := range alerts {
		list.WriteString(fmt.Sprintf(
			translation.Translate("alert_list_item_format"),
			alert.Ticker,
			marketLabel(alert.Market),
			directionLabel(alert.Direction),
			helpers.FormatPrice(alert.Threshold),
		))
	}

	return list.String()
}

func (d *Dispatcher) handleDigest(ctx context.Context, userID string) string {
	report, err := d.composer.Compose(ctx, userID)
	if err != nil {
		log.Errorf("failed to compose digest: %v", err)
		return translation.Translate("The weekly report is unavailable right now, please try again later 🙏")
	}
	return report
}

func directionLabel(direction types.Direction) string {
	if direction == types.DirectionBuy {
		return translation.Translate("buy")
	}
	return translation.Translate("sell")
}

func marketLabel(market types.Market) string {
	if market == types.MarketDomestic {
		return translation.Translate("TWSE")
	}
	return translation.Translate("overseas")
}
