package monitor

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go_market_monitor/models"

	"github.com/shopspring/decimal"
)

// lookbackDays is how many calendar days of history each fetch requests. Five
// days always spans at least the last two trading sessions across weekends
// and single holidays.
const lookbackDays = 5

// PriceFetcher supplies an ordered series of closing prices for a symbol,
// oldest first. It may return fewer than two points or fail transiently.
type PriceFetcher interface {
	FetchCloseSeries(symbol string, lookbackDays int) ([]decimal.Decimal, error)
}

// Notifier delivers a text message to the configured recipient.
// Fire-and-forget: failures are logged by the caller, never retried.
type Notifier interface {
	Send(text string) error
}

// Publisher receives the quote snapshot computed on each successful tick.
type Publisher interface {
	Publish(quotes []models.Quote)
}

// Index identifies one monitored market index.
type Index struct {
	Name   string
	Symbol string
}

// Status is the snapshot returned to the command surface.
type Status struct {
	Paused               bool           `json:"paused"`
	Tiers                models.TierSet `json:"tiers"`
	CheckIntervalSeconds int            `json:"check_interval_seconds"`
}

// Service runs the evaluation loop: on each tick it fetches quotes for all
// monitored indices, emits the daily digest on digest ticks, and classifies
// changes against the tier set unless the gate is paused. Ticks and command
// mutations are serialized through a single mutex, so at most one tick is in
// flight and a reconfigure never races a fire in progress.
type Service struct {
	mu sync.Mutex

	fetcher  PriceFetcher
	notifier Notifier
	stream   Publisher

	gate          *AlertGate
	tiers         models.TierSet
	indices       []Index
	checkInterval time.Duration

	lastQuotes []models.Quote
}

// NewService creates a monitor service with the gate in the active state.
func NewService(fetcher PriceFetcher, notifier Notifier, tiers models.TierSet, indices []Index, checkInterval time.Duration) *Service {
	return &Service{
		fetcher:       fetcher,
		notifier:      notifier,
		gate:          NewAlertGate(),
		tiers:         tiers,
		indices:       indices,
		checkInterval: checkInterval,
	}
}

// SetPublisher attaches an optional quote snapshot publisher. Must be called
// before the scheduler starts ticking.
func (s *Service) SetPublisher(p Publisher) {
	s.stream = p
}

// RunCheck performs a routine check tick.
func (s *Service) RunCheck() {
	s.runTick(false, "")
}

// RunDigest performs a digest tick: a full price check that additionally
// emits the daily digest and reopens the alert gate. digestTime is the
// configured HH:MM shown in the digest header.
func (s *Service) RunDigest(digestTime string) {
	s.runTick(true, digestTime)
}

func (s *Service) runTick(digest bool, digestTime string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes, err := s.collectQuotes()
	if err != nil {
		log.Printf("Skipping price check: %v", err)
		return
	}

	for _, q := range quotes {
		log.Printf("%s: Current: %s, Previous: %s, Change: %s",
			q.Name, q.Current.StringFixed(2), q.PreviousClose.StringFixed(2), q.ChangePercent())
	}

	s.lastQuotes = quotes
	if s.stream != nil {
		s.stream.Publish(quotes)
	}

	if digest {
		s.sendDigest(quotes, digestTime)
		s.gate.ResetOnDigest()
	}

	if s.gate.IsPaused() {
		return
	}

	for _, q := range quotes {
		tier, ok := s.tiers.Classify(q.Change)
		if !ok {
			continue
		}
		s.sendAlert(q, tier)
	}
}

// collectQuotes fetches and derives quotes for every monitored index. Any
// failure or insufficient series aborts the whole collection: no partial
// result is ever evaluated when all indices were requested.
func (s *Service) collectQuotes() ([]models.Quote, error) {
	quotes := make([]models.Quote, 0, len(s.indices))
	for _, idx := range s.indices {
		closes, err := s.fetcher.FetchCloseSeries(idx.Symbol, lookbackDays)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", idx.Name, err)
		}
		q, err := models.ComputeQuoteDelta(idx.Name, idx.Symbol, closes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", idx.Name, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// ManualCheck fetches a fresh quote snapshot on demand. Unlike scheduled
// ticks, insufficient data is surfaced to the requester instead of being
// swallowed into a log line.
func (s *Service) ManualCheck() ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectQuotes()
}

// Pause suppresses tier alerts until resumed or the next daily digest.
func (s *Service) Pause() {
	s.gate.Pause()
	log.Println("Alerts paused")
}

// Resume re-enables tier alerts.
func (s *Service) Resume() {
	s.gate.Resume()
	log.Println("Alerts resumed")
}

// IsPaused reports the gate state.
func (s *Service) IsPaused() bool {
	return s.gate.IsPaused()
}

// Status returns the monitor's view of the runtime state. Digest scheduling
// fields are owned by the scheduler and merged in by the command layer.
func (s *Service) Status() Status {
	return Status{
		Paused:               s.gate.IsPaused(),
		Tiers:                s.tiers,
		CheckIntervalSeconds: int(s.checkInterval.Seconds()),
	}
}

// Snapshot returns the quotes computed on the most recent successful tick.
func (s *Service) Snapshot() []models.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	quotes := make([]models.Quote, len(s.lastQuotes))
	copy(quotes, s.lastQuotes)
	return quotes
}

func (s *Service) sendDigest(quotes []models.Quote, digestTime string) {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily Market Update (%s):\n\n", digestTime)
	for i, q := range quotes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s (%s)", q.Name, q.Current.StringFixed(2), q.ChangePercent())
	}

	if err := s.notifier.Send(b.String()); err != nil {
		log.Printf("Failed to send daily digest: %v", err)
	}
}

func (s *Service) sendAlert(q models.Quote, tier models.AlertTier) {
	direction := "down"
	if !q.Change.IsNegative() {
		direction = "up"
	}
	magnitude := q.Change.Abs().Mul(decimal.NewFromInt(100)).StringFixed(2)

	message := fmt.Sprintf(
		"%s %s: %s %s %s%%\n\n"+
			"Current: %s\n"+
			"Previous: %s\n"+
			"Change: %s\n\n"+
			"Threshold: %s\n"+
			"Pause alerts: POST /api/v1/monitor/pause",
		tier.Emoji, tier.Label, q.Name, direction, magnitude,
		q.Current.StringFixed(2),
		q.PreviousClose.StringFixed(2),
		q.ChangePercent(),
		tier.ThresholdPercent(),
	)

	log.Printf("Sending %s alert for %s", tier.Label, q.Name)
	if err := s.notifier.Send(message); err != nil {
		log.Printf("Failed to send %s alert for %s: %v", tier.Label, q.Name, err)
	}
}
