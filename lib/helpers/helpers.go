package helpers

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice renders a price with thousand separators. Sub-10 values keep
// four decimals so forex rates stay readable.
func FormatPrice(price decimal.Decimal) string {
	decimals := 2

	f, _ := price.Float64()
	if f < 10 {
		decimals = 4
	}

	p := message.NewPrinter(language.English)
	return p.Sprintf("%.*f", decimals, f)
}

func FormatChangePct(pct decimal.Decimal) string {
	f, _ := pct.Float64()
	return fmt.Sprintf("%+.2f%%", f)
}

func FormatVolume(volume int64) string {
	return humanize.Comma(volume)
}

func FormatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// WeekRange formats the Monday..Sunday span containing t, e.g. 08/18-08/24.
func WeekRange(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	start := t.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)

	return start.Format("01/02") + "-" + end.Format("01/02")
}
