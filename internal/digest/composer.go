package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"stock-line-bot/internal/types"
	"stock-line-bot/lib/helpers"
	"stock-line-bot/lib/translation"
)

type benchmark struct {
	symbol string
	label  string
}

// The report covers a fixed set of benchmark symbols. They come from the
// same provider as stock quotes, Yahoo carries indices and forex under
// their caret and =X symbols.
var (
	marketIndices = []benchmark{
		{"^TWII", "TAIEX"},
		{"^DJI", "Dow Jones"},
		{"^IXIC", "NASDAQ"},
	}
	forexPairs = []benchmark{
		{"TWD=X", "USD/TWD"},
		{"EURUSD=X", "EUR/USD"},
	}
)

// Composer renders the weekly report text.
type Composer struct {
	store    types.AlertStore
	quotes   types.QuoteProvider
	location *time.Location

	// Now is swappable for tests.
	Now func() time.Time
}

func NewComposer(store types.AlertStore, quotes types.QuoteProvider, location *time.Location) *Composer {
	if location == nil {
		location = time.UTC
	}
	return &Composer{
		store:    store,
		quotes:   quotes,
		location: location,
		Now:      time.Now,
	}
}

// Compose builds the weekly report for one user: the Monday to Sunday week
// header, benchmark indices, forex rates and the user's tracked alerts.
// Rows with failing market data degrade to a placeholder, only a store
// failure aborts the report.
func (c *Composer) Compose(ctx context.Context, userID string) (string, error) {
	var report strings.Builder

	week := helpers.WeekRange(c.Now().In(c.location))
	report.WriteString("📈 " + fmt.Sprintf(translation.Translate("Weekly economic digest (%s)"), week))
	report.WriteString("\n\n")

	report.WriteString("🏛️ " + translation.Translate("Market indices") + "\n")
	c.writeQuoteRows(ctx, &report, marketIndices)

	report.WriteString("\n💱 " + translation.Translate("Forex") + "\n")
	c.writeQuoteRows(ctx, &report, forexPairs)

	alerts, err := c.store.GetAlertsByUserID(userID)
	if err != nil {
		return "", errors.Wrap(err, "failed to load alerts for digest")
	}

	report.WriteString("\n📌 " + translation.Translate("Your tracked stocks:") + "\n")
	if len(alerts) == 0 {
		report.WriteString(translation.Translate("You are not tracking any stocks yet, start with the track command 📌"))
		report.WriteString("\n")
	}
	for _, alert := range alerts {
		quote, err := c.quotes.Quote(ctx, alert.Market, alert.Ticker)
		if err != nil {
			log.Warnf("digest: no data for tracked %s: %v", alert.Ticker, err)
			report.WriteString(fmt.Sprintf(translation.Translate("digest_row_unavailable_format"), alert.Ticker))
			continue
		}
		report.WriteString(fmt.Sprintf(
			translation.Translate("digest_alert_row_format"),
			alert.Ticker,
			directionLabel(alert.Direction),
			helpers.FormatPrice(alert.Threshold),
			helpers.FormatPrice(quote.Price),
		))
	}

	report.WriteString("\n---\n")
	report.WriteString("💡 " + translation.Translate("For reference only, invest carefully"))

	return report.String(), nil
}

func (c *Composer) writeQuoteRows(ctx context.Context, report *strings.Builder, rows []benchmark) {
	for _, row := range rows {
		quote, err := c.quotes.Quote(ctx, types.MarketForeign, row.symbol)
		if err != nil {
			log.Warnf("digest: no data for %s: %v", row.symbol, err)
			report.WriteString(fmt.Sprintf(translation.Translate("digest_row_unavailable_format"), translation.Translate(row.label)))
			continue
		}
		report.WriteString(fmt.Sprintf(
			translation.Translate("digest_row_format"),
			translation.Translate(row.label),
			helpers.FormatPrice(quote.Price),
			helpers.FormatChangePct(quote.ChangePct),
		))
	}
}

func directionLabel(direction types.Direction) string {
	if direction == types.DirectionBuy {
		return translation.Translate("buy")
	}
	return translation.Translate("sell")
}
