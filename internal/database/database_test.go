package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"stock-line-bot/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(userID, ticker, threshold string, direction types.Direction) types.AlertRecord {
	return types.AlertRecord{
		UserID:    userID,
		Ticker:    ticker,
		Market:    types.MarketDomestic,
		Threshold: decimal.RequireFromString(threshold),
		Direction: direction,
	}
}

func TestAlertStores(t *testing.T) {
	stores := []struct {
		name string
		open func(t *testing.T) types.AlertStore
	}{
		{"sqlite", func(t *testing.T) types.AlertStore { return openTestDB(t) }},
		{"memory", func(t *testing.T) types.AlertStore { return NewMemStore() }},
	}

	for _, impl := range stores {
		t.Run(impl.name+"/insert then list", func(t *testing.T) {
			store := impl.open(t)

			if _, err := store.InsertAlert(testRecord("U1", "2330", "600", types.DirectionBuy)); err != nil {
				t.Fatalf("InsertAlert: %v", err)
			}

			alerts, err := store.GetAlertsByUserID("U1")
			if err != nil {
				t.Fatalf("GetAlertsByUserID: %v", err)
			}
			if len(alerts) != 1 {
				t.Fatalf("got %d alerts, want 1", len(alerts))
			}
			got := alerts[0]
			if got.Ticker != "2330" || got.Direction != types.DirectionBuy || !got.Threshold.Equal(decimal.RequireFromString("600")) {
				t.Errorf("stored alert = %+v, want ticker 2330 buy @600", got)
			}
			if got.CreatedAt == "" {
				t.Error("CreatedAt not populated")
			}
		})

		t.Run(impl.name+"/same direction replaces threshold", func(t *testing.T) {
			store := impl.open(t)

			first, err := store.InsertAlert(testRecord("U1", "2330", "600", types.DirectionBuy))
			if err != nil {
				t.Fatalf("InsertAlert: %v", err)
			}
			second, err := store.InsertAlert(testRecord("U1", "2330", "580", types.DirectionBuy))
			if err != nil {
				t.Fatalf("InsertAlert again: %v", err)
			}
			if first != second {
				t.Errorf("replacement changed id: %d -> %d", first, second)
			}

			alerts, err := store.GetAlertsByUserID("U1")
			if err != nil {
				t.Fatalf("GetAlertsByUserID: %v", err)
			}
			if len(alerts) != 1 {
				t.Fatalf("got %d alerts after replace, want 1", len(alerts))
			}
			if !alerts[0].Threshold.Equal(decimal.RequireFromString("580")) {
				t.Errorf("threshold = %s, want 580", alerts[0].Threshold)
			}
		})

		t.Run(impl.name+"/other direction is a separate record", func(t *testing.T) {
			store := impl.open(t)

			store.InsertAlert(testRecord("U1", "2330", "600", types.DirectionBuy))
			store.InsertAlert(testRecord("U1", "2330", "650", types.DirectionSell))

			alerts, err := store.GetAlertsByUserID("U1")
			if err != nil {
				t.Fatalf("GetAlertsByUserID: %v", err)
			}
			if len(alerts) != 2 {
				t.Fatalf("got %d alerts, want 2", len(alerts))
			}
		})

		t.Run(impl.name+"/delete by ticker reports rows", func(t *testing.T) {
			store := impl.open(t)

			store.InsertAlert(testRecord("U1", "2330", "600", types.DirectionBuy))
			store.InsertAlert(testRecord("U1", "2330", "650", types.DirectionSell))
			store.InsertAlert(testRecord("U1", "AAPL", "180", types.DirectionBuy))

			deleted, err := store.DeleteAlertsByTicker("U1", "2330")
			if err != nil {
				t.Fatalf("DeleteAlertsByTicker: %v", err)
			}
			if deleted != 2 {
				t.Errorf("deleted = %d, want 2", deleted)
			}

			deleted, err = store.DeleteAlertsByTicker("U1", "2330")
			if err != nil {
				t.Fatalf("DeleteAlertsByTicker second pass: %v", err)
			}
			if deleted != 0 {
				t.Errorf("second delete = %d rows, want 0", deleted)
			}

			alerts, _ := store.GetAlertsByUserID("U1")
			if len(alerts) != 1 || alerts[0].Ticker != "AAPL" {
				t.Errorf("remaining alerts = %+v, want only AAPL", alerts)
			}
		})

		t.Run(impl.name+"/delete by id", func(t *testing.T) {
			store := impl.open(t)

			id, _ := store.InsertAlert(testRecord("U1", "2330", "600", types.DirectionBuy))
			if err := store.DeleteAlert(id); err != nil {
				t.Fatalf("DeleteAlert: %v", err)
			}

			alerts, _ := store.GetAllAlerts()
			if len(alerts) != 0 {
				t.Errorf("got %d alerts after delete, want 0", len(alerts))
			}

			if err := store.DeleteAlert(id); !errors.Is(err, types.ErrAlertNotFound) {
				t.Errorf("deleting a missing id returned %v, want ErrAlertNotFound", err)
			}
		})

		t.Run(impl.name+"/distinct users", func(t *testing.T) {
			store := impl.open(t)

			store.InsertAlert(testRecord("U2", "2330", "600", types.DirectionBuy))
			store.InsertAlert(testRecord("U1", "AAPL", "180", types.DirectionBuy))
			store.InsertAlert(testRecord("U1", "2330", "650", types.DirectionSell))

			users, err := store.GetUserIDs()
			if err != nil {
				t.Fatalf("GetUserIDs: %v", err)
			}
			if len(users) != 2 || users[0] != "U1" || users[1] != "U2" {
				t.Errorf("users = %v, want [U1 U2]", users)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.InsertAlert(testRecord("U1", "2330", "600.5", types.DirectionBuy)); err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	alerts, err := reopened.GetAllAlerts()
	if err != nil {
		t.Fatalf("GetAllAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts after reopen, want 1", len(alerts))
	}
	if !alerts[0].Threshold.Equal(decimal.RequireFromString("600.5")) {
		t.Errorf("threshold = %s, want 600.5", alerts[0].Threshold)
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	t.Run("missing metric defaults to zero", func(t *testing.T) {
		value, err := db.GetMetric("never_saved")
		if err != nil {
			t.Fatalf("GetMetric: %v", err)
		}
		if value != 0 {
			t.Errorf("value = %f, want 0", value)
		}
	})

	t.Run("unlabeled metric round trips", func(t *testing.T) {
		if err := db.SaveMetric("messages_total", "", "", 42); err != nil {
			t.Fatalf("SaveMetric: %v", err)
		}
		if err := db.SaveMetric("messages_total", "", "", 43); err != nil {
			t.Fatalf("SaveMetric overwrite: %v", err)
		}

		value, err := db.GetMetric("messages_total")
		if err != nil {
			t.Fatalf("GetMetric: %v", err)
		}
		if value != 43 {
			t.Errorf("value = %f, want 43", value)
		}
	})

	t.Run("labeled metric round trips", func(t *testing.T) {
		if err := db.SaveMetric("messages_per_user", "user_id", "U1", 7); err != nil {
			t.Fatalf("SaveMetric: %v", err)
		}
		if err := db.SaveMetric("messages_per_user", "user_id", "U2", 3); err != nil {
			t.Fatalf("SaveMetric: %v", err)
		}

		labeled, err := db.GetMetricsWithLabels("messages_per_user")
		if err != nil {
			t.Fatalf("GetMetricsWithLabels: %v", err)
		}
		if labeled["user_id"]["U1"] != 7 || labeled["user_id"]["U2"] != 3 {
			t.Errorf("labeled = %v, want user_id U1=7 U2=3", labeled)
		}
	})
}
