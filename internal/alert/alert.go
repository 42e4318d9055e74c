package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"stock-line-bot/internal/types"
	"stock-line-bot/lib/helpers"
	"stock-line-bot/lib/translation"
)

// RepeatPolicy says what happens to a subscription after its alert fires.
type RepeatPolicy string

const (
	// RepeatOnce removes the subscription after the first notification.
	RepeatOnce RepeatPolicy = "once"
	// RepeatAlways keeps the subscription and fires on every check while
	// the price stays across the threshold.
	RepeatAlways RepeatPolicy = "always"
)

func ParseRepeatPolicy(value string) RepeatPolicy {
	if strings.EqualFold(value, string(RepeatAlways)) {
		return RepeatAlways
	}
	return RepeatOnce
}

// Service periodically compares stored subscriptions with live prices and
// notifies their owners.
type Service struct {
	store    types.AlertStore
	quotes   types.QuoteProvider
	sender   types.TextSender
	interval time.Duration
	repeat   RepeatPolicy

	// processing serializes check passes with other store sweeps.
	processing sync.Mutex

	// OnFired, when set, observes every fired alert.
	OnFired func(alert types.AlertRecord)
}

func NewService(store types.AlertStore, quotes types.QuoteProvider, sender types.TextSender, interval time.Duration, repeat RepeatPolicy) *Service {
	return &Service{
		store:    store,
		quotes:   quotes,
		sender:   sender,
		interval: interval,
		repeat:   repeat,
	}
}

// CheckAlerts runs one pass over all subscriptions. A failing ticker or a
// failed push skips that record and leaves it stored for the next pass.
func (s *Service) CheckAlerts(ctx context.Context) {
	s.processing.Lock()
	defer s.processing.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in alert checker: %v", r)
		}
	}()

	log.Debug("🔄 Checking alerts...")

	alerts, err := s.store.GetAllAlerts()
	if err != nil {
		log.Errorf("❌ Failed to fetch alerts from the database: %v", err)
		return
	}

	for _, alert := range alerts {
		quote, err := s.quotes.Quote(ctx, alert.Market, alert.Ticker)
		if err != nil {
			log.Warnf("⚠️ No price data for ticker %s: %v", alert.Ticker, err)
			continue
		}

		log.Debugf("🔍 Checking alert ID: %d | Ticker: %s | Target: %s | Current: %s",
			alert.ID, alert.Ticker, alert.Threshold, quote.Price)

		if !alert.Crossed(quote.Price) {
			continue
		}

		message := fmt.Sprintf(
			translation.Translate("alert_fired_format"),
			quote.Name,
			quote.Symbol,
			helpers.FormatPrice(quote.Price),
			directionLabel(alert.Direction),
			helpers.FormatPrice(alert.Threshold),
		)

		if err := s.sender.SendText(ctx, alert.UserID, message); err != nil {
			log.Errorf("❌ Failed to send alert notification: %v", err)
			continue
		}
		log.Infof("✅ Alert notification sent to user %s for %s", alert.UserID, alert.Ticker)

		if s.OnFired != nil {
			s.OnFired(alert)
		}

		if s.repeat == RepeatOnce {
			if err := s.store.DeleteAlert(alert.ID); err != nil {
				log.Errorf("❌ Failed to delete fired alert %d: %v", alert.ID, err)
			}
		}
	}

	log.Debug("✅ Alert check completed.")
}

// Start launches the periodic checker. It stops when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.CheckAlerts(ctx)

			select {
			case <-ctx.Done():
				log.Info("Alert service stopped.")
				return
			case <-ticker.C:
			}
		}
	}()
	log.Infof("🚀 Alert service started, checking every %s.", s.interval)
}

func directionLabel(direction types.Direction) string {
	if direction == types.DirectionBuy {
		return translation.Translate("buy")
	}
	return translation.Translate("sell")
}
