package types

import "context"

// AlertStore persists alert subscriptions. Implementations upsert on
// (user_id, ticker, direction), so tracking the same pair again replaces
// the stored threshold.
type AlertStore interface {
	InsertAlert(alert AlertRecord) (int64, error)
	GetAlertsByUserID(userID string) ([]AlertRecord, error)
	GetAllAlerts() ([]AlertRecord, error)
	DeleteAlert(id int64) error
	DeleteAlertsByTicker(userID, ticker string) (int64, error)
	GetUserIDs() ([]string, error)
}

// QuoteProvider looks up the current market quote for a ticker.
type QuoteProvider interface {
	Quote(ctx context.Context, market Market, ticker string) (Quote, error)
}

// TextSender pushes a plain text message to a chat user.
type TextSender interface {
	SendText(ctx context.Context, userID, text string) error
}
