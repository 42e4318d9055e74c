package digest

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"stock-line-bot/internal/types"
)

// Scheduler pushes the weekly digest to every subscribed user at the
// configured weekday and hour. A trigger instant that passes while the
// process is down is skipped, the next week's is armed instead.
type Scheduler struct {
	store    types.AlertStore
	composer *Composer
	sender   types.TextSender
	location *time.Location
	weekday  time.Weekday
	hour     int

	// Now is swappable for tests.
	Now func() time.Time

	// OnSent, when set, observes each delivered digest.
	OnSent func(userID string)
}

func NewScheduler(store types.AlertStore, composer *Composer, sender types.TextSender, location *time.Location, weekday time.Weekday, hour int) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		store:    store,
		composer: composer,
		sender:   sender,
		location: location,
		weekday:  weekday,
		hour:     hour,
		Now:      time.Now,
	}
}

// NextFire returns the next configured weekday/hour instant strictly after
// now.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	now = now.In(s.location)

	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.location)
	daysAhead := (int(s.weekday) - int(now.Weekday()) + 7) % 7
	fire = fire.AddDate(0, 0, daysAhead)

	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 7)
	}
	return fire
}

// Start launches the weekly loop. It stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			next := s.NextFire(s.Now())
			log.Infof("🗓️ Next weekly digest scheduled for %s", next.Format("2006-01-02 15:04 MST"))

			timer := time.NewTimer(next.Sub(s.Now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info("Digest scheduler stopped.")
				return
			case <-timer.C:
				s.SendDigests(ctx)
			}
		}
	}()
	log.Info("🚀 Digest scheduler started.")
}

// SendDigests composes and pushes the digest to every user holding at
// least one subscription.
func (s *Scheduler) SendDigests(ctx context.Context) {
	log.Info("🔄 Sending weekly digests...")

	users, err := s.store.GetUserIDs()
	if err != nil {
		log.Errorf("❌ Failed to list digest recipients: %v", err)
		return
	}

	var sent int
	for _, userID := range users {
		report, err := s.composer.Compose(ctx, userID)
		if err != nil {
			log.Errorf("❌ Failed to compose digest for %s: %v", userID, err)
			continue
		}
		if err := s.sender.SendText(ctx, userID, report); err != nil {
			log.Errorf("❌ Failed to push digest to %s: %v", userID, err)
			continue
		}
		sent++
		if s.OnSent != nil {
			s.OnSent(userID)
		}
	}

	log.Infof("✅ Weekly digests sent to %d of %d users.", sent, len(users))
}
