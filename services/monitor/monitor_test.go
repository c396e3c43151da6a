package monitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go_market_monitor/models"

	"github.com/shopspring/decimal"
)

type fakeFetcher struct {
	series map[string][]decimal.Decimal
	err    error
}

func (f *fakeFetcher) FetchCloseSeries(symbol string, lookbackDays int) ([]decimal.Decimal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series[symbol], nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Send(text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

func closesOf(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		out = append(out, decimal.NewFromFloat(v))
	}
	return out
}

func defaultTiers(t *testing.T) models.TierSet {
	t.Helper()
	raw := []string{"-0.01", "-0.03", "-0.06"}
	thresholds := make([]decimal.Decimal, 0, len(raw))
	for _, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			t.Fatalf("bad threshold %q: %v", v, err)
		}
		thresholds = append(thresholds, d)
	}
	tiers, err := models.NewTierSet(thresholds)
	if err != nil {
		t.Fatalf("failed to build tier set: %v", err)
	}
	return tiers
}

func newTestService(t *testing.T, fetcher *fakeFetcher, notifier *fakeNotifier) *Service {
	t.Helper()
	indices := []Index{
		{Name: "Sensex", Symbol: "^BSESN"},
		{Name: "Nifty", Symbol: "^NSEI"},
	}
	return NewService(fetcher, notifier, defaultTiers(t), indices, 300*time.Second)
}

func TestCheckTickEmitsSingleMostSevereAlertPerSymbol(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(100, 93), // -7%
		"^NSEI":  closesOf(100, 93),
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.RunCheck()
	svc.RunCheck()

	if len(notifier.messages) != 4 {
		t.Fatalf("expected 4 alerts (2 symbols x 2 ticks), got %d", len(notifier.messages))
	}
	for i, msg := range notifier.messages {
		if !strings.Contains(msg, "CRITICAL") {
			t.Errorf("message %d should be CRITICAL, got: %s", i, msg)
		}
		if strings.Contains(msg, "WARNING") || strings.Contains(msg, "ALERT:") {
			t.Errorf("message %d should only carry the most severe tier, got: %s", i, msg)
		}
	}
}

func TestCheckTickBelowLowestTierSendsNothing(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(1000, 1004), // +0.4%
		"^NSEI":  closesOf(1000, 998),  // -0.2%
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.RunCheck()

	if len(notifier.messages) != 0 {
		t.Errorf("expected no messages, got %d: %v", len(notifier.messages), notifier.messages)
	}
}

func TestDigestTickBelowTiersEmitsOnlyDigest(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(1000, 1004),
		"^NSEI":  closesOf(1000, 998),
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.RunDigest("09:15")

	if len(notifier.messages) != 1 {
		t.Fatalf("expected exactly one digest message, got %d", len(notifier.messages))
	}
	digest := notifier.messages[0]
	if !strings.Contains(digest, "Daily Market Update (09:15)") {
		t.Errorf("digest header missing: %s", digest)
	}
	if !strings.Contains(digest, "+0.40%") || !strings.Contains(digest, "-0.20%") {
		t.Errorf("digest should carry signed changes for both indices: %s", digest)
	}
	if svc.IsPaused() {
		t.Error("gate should remain active after digest")
	}
}

func TestDigestResetsGateBeforeAlertEvaluation(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(100, 96), // -4%
		"^NSEI":  closesOf(100, 96),
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.Pause()
	if !svc.IsPaused() {
		t.Fatal("gate should be paused")
	}

	svc.RunDigest("09:15")

	if svc.IsPaused() {
		t.Error("digest should reopen the gate")
	}
	// Digest first, then one WARNING alert per symbol from the same tick.
	if len(notifier.messages) != 3 {
		t.Fatalf("expected digest + 2 alerts, got %d: %v", len(notifier.messages), notifier.messages)
	}
	if !strings.Contains(notifier.messages[0], "Daily Market Update") {
		t.Errorf("first message should be the digest, got: %s", notifier.messages[0])
	}
	for _, msg := range notifier.messages[1:] {
		if !strings.Contains(msg, "WARNING") {
			t.Errorf("expected WARNING alert, got: %s", msg)
		}
	}
}

func TestPausedGateSuppressesAlerts(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(100, 93),
		"^NSEI":  closesOf(100, 93),
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.Pause()
	svc.RunCheck()

	if len(notifier.messages) != 0 {
		t.Errorf("expected no alerts while paused, got %d", len(notifier.messages))
	}
}

func TestInsufficientDataSkipsWholeTick(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(100, 93),
		"^NSEI":  closesOf(100), // one point only
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.RunCheck()

	if len(notifier.messages) != 0 {
		t.Errorf("no partial alert may be sent when one symbol lacks data, got %d messages", len(notifier.messages))
	}
	if len(svc.Snapshot()) != 0 {
		t.Error("snapshot should stay empty after a skipped tick")
	}
}

func TestFetchFailureSkipsTick(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream timeout")}
	notifier := &fakeNotifier{}
	svc := newTestService(t, fetcher, notifier)

	svc.RunCheck()
	svc.RunDigest("09:15")

	if len(notifier.messages) != 0 {
		t.Errorf("expected no messages after fetch failures, got %d", len(notifier.messages))
	}
}

func TestManualCheck(t *testing.T) {
	t.Run("returns_quotes", func(t *testing.T) {
		fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
			"^BSESN": closesOf(100, 97),
			"^NSEI":  closesOf(1000, 998),
		}}
		svc := newTestService(t, fetcher, &fakeNotifier{})

		quotes, err := svc.ManualCheck()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(quotes) != 2 {
			t.Fatalf("expected 2 quotes, got %d", len(quotes))
		}
		want, _ := decimal.NewFromString("-0.03")
		if !quotes[0].Change.Equal(want) {
			t.Errorf("sensex change = %s, want -0.03", quotes[0].Change)
		}
	})

	t.Run("surfaces_insufficient_data", func(t *testing.T) {
		fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
			"^BSESN": closesOf(100),
			"^NSEI":  closesOf(1000, 998),
		}}
		svc := newTestService(t, fetcher, &fakeNotifier{})

		_, err := svc.ManualCheck()
		if !errors.Is(err, models.ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestNotificationFailureDoesNotAffectGate(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(100, 93),
		"^NSEI":  closesOf(100, 93),
	}}
	notifier := &fakeNotifier{err: errors.New("telegram unavailable")}
	svc := newTestService(t, fetcher, notifier)

	svc.Pause()
	svc.RunDigest("09:15")

	if svc.IsPaused() {
		t.Error("failed digest delivery must still reset the gate")
	}
	// Delivery was attempted for the digest and both alerts.
	if len(notifier.messages) != 3 {
		t.Errorf("expected 3 delivery attempts, got %d", len(notifier.messages))
	}
}

func TestSnapshotHoldsLastSuccessfulTick(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]decimal.Decimal{
		"^BSESN": closesOf(1000, 1004),
		"^NSEI":  closesOf(1000, 998),
	}}
	svc := newTestService(t, fetcher, &fakeNotifier{})

	svc.RunCheck()

	snapshot := svc.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 quotes in snapshot, got %d", len(snapshot))
	}
	if snapshot[0].Name != "Sensex" || snapshot[1].Name != "Nifty" {
		t.Errorf("snapshot order should follow configured indices: %+v", snapshot)
	}
}
