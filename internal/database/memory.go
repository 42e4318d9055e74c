package database

import (
	"sort"
	"sync"
	"time"

	"stock-line-bot/internal/types"
)

// MemStore is an in-memory AlertStore. It backs tests and ephemeral runs
// where nothing needs to survive a restart.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	alerts map[int64]types.AlertRecord
}

var _ types.AlertStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{alerts: make(map[int64]types.AlertRecord)}
}

func (m *MemStore) InsertAlert(alert types.AlertRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert.CreatedAt = time.Now().UTC().Format("2006-01-02 15:04:05")

	for id, existing := range m.alerts {
		if existing.UserID == alert.UserID && existing.Ticker == alert.Ticker && existing.Direction == alert.Direction {
			alert.ID = id
			m.alerts[id] = alert
			return id, nil
		}
	}

	m.nextID++
	alert.ID = m.nextID
	m.alerts[alert.ID] = alert
	return alert.ID, nil
}

func (m *MemStore) GetAllAlerts() ([]types.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]types.AlertRecord, 0, len(m.alerts))
	for _, alert := range m.alerts {
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

func (m *MemStore) GetAlertsByUserID(userID string) ([]types.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var alerts []types.AlertRecord
	for _, alert := range m.alerts {
		if alert.UserID == userID {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

func (m *MemStore) DeleteAlert(alertID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alerts[alertID]; !ok {
		return types.ErrAlertNotFound
	}
	delete(m.alerts, alertID)
	return nil
}

func (m *MemStore) DeleteAlertsByTicker(userID, ticker string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, alert := range m.alerts {
		if alert.UserID == userID && alert.Ticker == ticker {
			delete(m.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemStore) GetUserIDs() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var users []string
	for _, alert := range m.alerts {
		if !seen[alert.UserID] {
			seen[alert.UserID] = true
			users = append(users, alert.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}
