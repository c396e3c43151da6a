package scheduler

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go_market_monitor/services/monitor"

	"github.com/go-co-op/gocron"
)

const digestJobTag = "daily-digest"

// ErrInvalidDigestTime is returned when a digest time is not a valid HH:MM
// 24-hour value. Nothing is rescheduled in that case.
var ErrInvalidDigestTime = errors.New("digest time must be HH:MM in 24-hour format")

// Scheduler manages the recurring check trigger and the once-daily digest
// trigger in the market timezone.
type Scheduler struct {
	cron    *gocron.Scheduler
	monitor *monitor.Service

	mu            sync.Mutex
	checkInterval time.Duration
	digestTime    string
	digestJob     *gocron.Job
	now           func() time.Time
}

// NewScheduler creates a scheduler for the given market timezone. The digest
// time is validated here so a malformed default fails startup instead of
// surfacing on the first missed morning.
func NewScheduler(loc *time.Location, m *monitor.Service, checkInterval time.Duration, digestTime string) (*Scheduler, error) {
	if _, err := parseDigestTime(digestTime); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:          gocron.NewScheduler(loc),
		monitor:       m,
		checkInterval: checkInterval,
		digestTime:    digestTime,
		now:           func() time.Time { return time.Now().In(loc) },
	}, nil
}

// Start arms both triggers and runs the scheduler in the background. The
// digest trigger's first fire is today if the configured time has not yet
// passed in the market timezone, otherwise tomorrow.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seconds := int(s.checkInterval.Seconds())
	if _, err := s.cron.Every(seconds).Seconds().Do(s.monitor.RunCheck); err != nil {
		return fmt.Errorf("failed to arm check trigger: %w", err)
	}
	if err := s.armDigestLocked(s.digestTime); err != nil {
		return err
	}

	s.cron.StartAsync()
	log.Printf("Scheduler started: check every %v, daily digest at %s", s.checkInterval, s.digestTime)
	return nil
}

// Stop stops all triggers.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// armDigestLocked arms a digest trigger at the given time. Callers hold s.mu.
func (s *Scheduler) armDigestLocked(at string) error {
	job, err := s.cron.Every(1).Day().At(at).Tag(digestJobTag).Do(func() {
		s.monitor.RunDigest(s.DigestTime())
	})
	if err != nil {
		return fmt.Errorf("failed to arm digest trigger: %w", err)
	}
	s.digestJob = job
	return nil
}

// ReconfigureDigestTime replaces the armed digest trigger with one at the new
// local time. The input is validated before any state changes; the retract
// and re-arm happen under the scheduler lock, so no two digest triggers are
// ever armed at once and the armed-trigger gap is bounded by the swap. gocron
// schedules a Day().At job for today when the time has not yet passed,
// otherwise tomorrow, so the calendar day of the change neither double-fires
// nor goes missing.
func (s *Scheduler) ReconfigureDigestTime(at string) error {
	if _, err := parseDigestTime(at); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.digestJob == nil {
		// Not started yet; Start will arm at the new time.
		s.digestTime = at
		return nil
	}

	if err := s.cron.RemoveByTag(digestJobTag); err != nil {
		return fmt.Errorf("failed to retract digest trigger: %w", err)
	}
	s.digestJob = nil
	if err := s.armDigestLocked(at); err != nil {
		// Restore the previous trigger so a day is never left without one.
		if restoreErr := s.armDigestLocked(s.digestTime); restoreErr != nil {
			log.Printf("Failed to restore digest trigger at %s: %v", s.digestTime, restoreErr)
		}
		return err
	}
	s.digestTime = at

	log.Printf("Digest time reconfigured to %s", at)
	return nil
}

// DigestTime returns the configured digest time as HH:MM.
func (s *Scheduler) DigestTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digestTime
}

// CheckInterval returns the check trigger interval.
func (s *Scheduler) CheckInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkInterval
}

// NextDigestRun reports when the digest trigger fires next, in the market
// timezone.
func (s *Scheduler) NextDigestRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.digestJob != nil && !s.digestJob.NextRun().IsZero() {
		return s.digestJob.NextRun()
	}
	return nextDailyRun(s.now(), s.digestTime)
}

// nextDailyRun computes the next occurrence of an HH:MM wall-clock time:
// today if it has not yet passed, otherwise tomorrow.
func nextDailyRun(now time.Time, at string) time.Time {
	parsed, err := parseDigestTime(at)
	if err != nil {
		return time.Time{}
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func parseDigestTime(at string) (time.Time, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDigestTime, at)
	}
	return parsed, nil
}
