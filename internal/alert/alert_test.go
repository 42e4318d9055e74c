package alert

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"stock-line-bot/internal/database"
	"stock-line-bot/internal/types"
)

type stubProvider struct {
	prices map[string]string
	err    error
}

func (p *stubProvider) Quote(ctx context.Context, market types.Market, ticker string) (types.Quote, error) {
	if p.err != nil {
		return types.Quote{}, p.err
	}
	raw, ok := p.prices[ticker]
	if !ok {
		return types.Quote{}, types.ErrQuoteNotFound
	}
	return types.Quote{
		Ticker: ticker,
		Symbol: ticker,
		Name:   ticker,
		Market: market,
		Price:  decimal.RequireFromString(raw),
	}, nil
}

type recordingSender struct {
	messages []string
	targets  []string
	err      error
}

func (r *recordingSender) SendText(ctx context.Context, userID, text string) error {
	if r.err != nil {
		return r.err
	}
	r.targets = append(r.targets, userID)
	r.messages = append(r.messages, text)
	return nil
}

func seedAlert(t *testing.T, store types.AlertStore, threshold string, direction types.Direction) {
	t.Helper()
	_, err := store.InsertAlert(types.AlertRecord{
		UserID:    "U1",
		Ticker:    "2330",
		Market:    types.MarketDomestic,
		Threshold: decimal.RequireFromString(threshold),
		Direction: direction,
	})
	if err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}
}

func TestCheckAlertsFiring(t *testing.T) {
	tests := []struct {
		name      string
		direction types.Direction
		threshold string
		price     string
		wantFired bool
	}{
		{"buy fires when price drops through", types.DirectionBuy, "600", "590", true},
		{"buy stays quiet above threshold", types.DirectionBuy, "600", "610", false},
		{"sell fires when price rises through", types.DirectionSell, "600", "610", true},
		{"sell stays quiet below threshold", types.DirectionSell, "600", "590", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := database.NewMemStore()
			sender := &recordingSender{}
			provider := &stubProvider{prices: map[string]string{"2330": tt.price}}
			service := NewService(store, provider, sender, time.Minute, RepeatOnce)

			seedAlert(t, store, tt.threshold, tt.direction)
			service.CheckAlerts(context.Background())

			fired := len(sender.messages) > 0
			if fired != tt.wantFired {
				t.Fatalf("fired = %v, want %v (messages: %v)", fired, tt.wantFired, sender.messages)
			}

			remaining, _ := store.GetAllAlerts()
			if tt.wantFired && len(remaining) != 0 {
				t.Errorf("fired alert still stored: %+v", remaining)
			}
			if !tt.wantFired && len(remaining) != 1 {
				t.Errorf("quiet alert vanished, remaining = %+v", remaining)
			}

			if tt.wantFired {
				if sender.targets[0] != "U1" {
					t.Errorf("notification went to %s, want U1", sender.targets[0])
				}
				if !strings.Contains(sender.messages[0], "2330") {
					t.Errorf("notification %q does not mention the ticker", sender.messages[0])
				}
			}
		})
	}
}

func TestCheckAlertsRepeatAlwaysKeepsSubscription(t *testing.T) {
	store := database.NewMemStore()
	sender := &recordingSender{}
	provider := &stubProvider{prices: map[string]string{"2330": "590"}}
	service := NewService(store, provider, sender, time.Minute, RepeatAlways)

	seedAlert(t, store, "600", types.DirectionBuy)
	service.CheckAlerts(context.Background())
	service.CheckAlerts(context.Background())

	if len(sender.messages) != 2 {
		t.Errorf("got %d notifications, want 2", len(sender.messages))
	}
	remaining, _ := store.GetAllAlerts()
	if len(remaining) != 1 {
		t.Errorf("subscription removed under always policy: %+v", remaining)
	}
}

func TestCheckAlertsProviderFailureKeepsSubscription(t *testing.T) {
	store := database.NewMemStore()
	sender := &recordingSender{}
	provider := &stubProvider{err: errors.New("api down")}
	service := NewService(store, provider, sender, time.Minute, RepeatOnce)

	seedAlert(t, store, "600", types.DirectionBuy)
	service.CheckAlerts(context.Background())

	if len(sender.messages) != 0 {
		t.Errorf("notifications sent without price data: %v", sender.messages)
	}
	remaining, _ := store.GetAllAlerts()
	if len(remaining) != 1 {
		t.Errorf("subscription lost on provider failure: %+v", remaining)
	}
}

func TestCheckAlertsSendFailureKeepsSubscription(t *testing.T) {
	store := database.NewMemStore()
	sender := &recordingSender{err: errors.New("push rejected")}
	provider := &stubProvider{prices: map[string]string{"2330": "590"}}
	service := NewService(store, provider, sender, time.Minute, RepeatOnce)

	seedAlert(t, store, "600", types.DirectionBuy)
	service.CheckAlerts(context.Background())

	remaining, _ := store.GetAllAlerts()
	if len(remaining) != 1 {
		t.Errorf("subscription deleted although the push failed: %+v", remaining)
	}
}

func TestCheckAlertsReportsFired(t *testing.T) {
	store := database.NewMemStore()
	sender := &recordingSender{}
	provider := &stubProvider{prices: map[string]string{"2330": "590"}}
	service := NewService(store, provider, sender, time.Minute, RepeatOnce)

	var fired []types.AlertRecord
	service.OnFired = func(alert types.AlertRecord) { fired = append(fired, alert) }

	seedAlert(t, store, "600", types.DirectionBuy)
	service.CheckAlerts(context.Background())

	if len(fired) != 1 || fired[0].Ticker != "2330" {
		t.Errorf("observed fired alerts = %+v, want one for 2330", fired)
	}
}

func TestParseRepeatPolicy(t *testing.T) {
	if got := ParseRepeatPolicy("always"); got != RepeatAlways {
		t.Errorf("ParseRepeatPolicy(always) = %s", got)
	}
	if got := ParseRepeatPolicy("ALWAYS"); got != RepeatAlways {
		t.Errorf("ParseRepeatPolicy(ALWAYS) = %s", got)
	}
	for _, value := range []string{"once", "", "weird"} {
		if got := ParseRepeatPolicy(value); got != RepeatOnce {
			t.Errorf("ParseRepeatPolicy(%q) = %s, want once", value, got)
		}
	}
}
