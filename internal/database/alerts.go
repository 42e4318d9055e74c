package database

import (
	"database/sql"
	"fmt"
	"stock-line-bot/internal/types"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var _ types.AlertStore = (*DB)(nil)

// InsertAlert saves an alert subscription. When the user already tracks the
// ticker in the same direction the stored threshold is replaced.
func (d *DB) InsertAlert(alert types.AlertRecord) (int64, error) {
	query := `
	INSERT INTO alerts (user_id, ticker, market, threshold, direction)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (user_id, ticker, direction)
	DO UPDATE SET threshold = excluded.threshold, market = excluded.market, created_at = CURRENT_TIMESTAMP;`

	_, err := d.db.Exec(query, alert.UserID, alert.Ticker, string(alert.Market), alert.Threshold.String(), string(alert.Direction))
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	var id int64
	row := d.db.QueryRow(`SELECT id FROM alerts WHERE user_id = ? AND ticker = ? AND direction = ?;`,
		alert.UserID, alert.Ticker, string(alert.Direction))
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read alert id: %w", err)
	}

	log.Debugf("Alert saved: UserID: %s, Ticker: %s, Threshold: %s, Direction: %s",
		alert.UserID, alert.Ticker, alert.Threshold, alert.Direction)
	return id, nil
}

// GetAllAlerts fetches every alert subscription in the store.
func (d *DB) GetAllAlerts() ([]types.AlertRecord, error) {
	query := `SELECT id, user_id, ticker, market, threshold, direction, created_at FROM alerts ORDER BY id;`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.AlertRecord
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// GetAlertsByUserID fetches all alerts belonging to one user.
func (d *DB) GetAlertsByUserID(userID string) ([]types.AlertRecord, error) {
	query := `SELECT id, user_id, ticker, market, threshold, direction, created_at FROM alerts WHERE user_id = ? ORDER BY id;`

	rows, err := d.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var alerts []types.AlertRecord
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// DeleteAlert removes a triggered alert from the store.
func (d *DB) DeleteAlert(alertID int64) error {
	query := `DELETE FROM alerts WHERE id = ?;`
	res, err := d.db.Exec(query, alertID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if deleted, err := res.RowsAffected(); err == nil && deleted == 0 {
		return types.ErrAlertNotFound
	}
	return nil
}

// DeleteAlertsByTicker removes every alert a user keeps on one ticker and
// reports how many rows went away.
func (d *DB) DeleteAlertsByTicker(userID, ticker string) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM alerts WHERE user_id = ? AND ticker = ?;`, userID, ticker)
	if err != nil {
		return 0, fmt.Errorf("failed to delete alerts for ticker %s: %w", ticker, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted alerts: %w", err)
	}
	return deleted, nil
}

// GetUserIDs returns the distinct users holding at least one alert.
func (d *DB) GetUserIDs() ([]string, error) {
	rows, err := d.db.Query(`SELECT DISTINCT user_id FROM alerts ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		users = append(users, userID)
	}

	return users, rows.Err()
}

func scanAlert(rows *sql.Rows) (types.AlertRecord, error) {
	var alert types.AlertRecord
	var market, threshold, direction string

	if err := rows.Scan(&alert.ID, &alert.UserID, &alert.Ticker, &market, &threshold, &direction, &alert.CreatedAt); err != nil {
		return alert, fmt.Errorf("failed to scan row: %w", err)
	}

	value, err := decimal.NewFromString(threshold)
	if err != nil {
		return alert, fmt.Errorf("failed to parse stored threshold %q: %w", threshold, err)
	}

	alert.Market = types.Market(market)
	alert.Threshold = value
	alert.Direction = types.Direction(direction)
	return alert, nil
}
