package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperwx/paperwx/pkg/battery"
	"github.com/paperwx/paperwx/pkg/config"
	"github.com/paperwx/paperwx/pkg/display"
	"github.com/paperwx/paperwx/pkg/power"
	"github.com/paperwx/paperwx/pkg/state"
	"github.com/paperwx/paperwx/pkg/utils/ptr"
	"github.com/paperwx/paperwx/pkg/weather"
)

type fakeClock struct {
	now    time.Time
	synced bool
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) SetFromNetwork(time.Time) error {
	c.synced = true
	return nil
}

type fetchResult struct {
	data *weather.Data
	err  error
}

type fakeFetcher struct {
	t       *testing.T
	results []fetchResult
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context) (*weather.Data, error) {
	if f.calls >= len(f.results) {
		f.t.Fatalf("unexpected fetch call %d", f.calls+1)
	}
	r := f.results[f.calls]
	f.calls++
	return r.data, r.err
}

type renderCall struct {
	data     *weather.Data
	degraded *display.Degraded
	mode     display.Mode
}

type fakeRenderer struct {
	calls []renderCall
}

func (r *fakeRenderer) Render(data *weather.Data, degraded *display.Degraded, mode display.Mode) (*display.Frame, error) {
	r.calls = append(r.calls, renderCall{data: data, degraded: degraded, mode: mode})
	return &display.Frame{Width: 1, Height: 1, Pixels: []byte{0}}, nil
}

type fakePanel struct {
	modes []display.Mode
	err   error
}

func (p *fakePanel) Display(_ *display.Frame, mode display.Mode) error {
	p.modes = append(p.modes, mode)
	return p.err
}

type fakeMonitor struct {
	sample battery.Sample
	err    error
}

func (m fakeMonitor) Sample() (battery.Sample, error) {
	return m.sample, m.err
}

type fakeWakeup struct {
	armedAt []time.Time
	err     error
}

func (w *fakeWakeup) SetWakeup(at time.Time) error {
	if w.err != nil {
		return w.err
	}
	w.armedAt = append(w.armedAt, at)
	return nil
}

type harness struct {
	controller *Controller
	clock      *fakeClock
	fetcher    *fakeFetcher
	renderer   *fakeRenderer
	panel      *fakePanel
	wakeup     *fakeWakeup
	shutdowns  int
	store      *state.Store
}

func newHarness(t *testing.T, raw *config.RawFileConfig, monitor battery.Monitor, results ...fetchResult) *harness {
	t.Helper()

	if raw == nil {
		raw = &config.RawFileConfig{}
	}
	if raw.APIKey == nil {
		raw.APIKey = ptr.To("test")
	}
	if raw.RefreshMinutes == nil {
		raw.RefreshMinutes = ptr.To(120)
	}
	conf := config.NewFileFromConfig(raw, "")

	h := &harness{
		clock:    &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		fetcher:  &fakeFetcher{t: t, results: results},
		renderer: &fakeRenderer{},
		panel:    &fakePanel{},
		wakeup:   &fakeWakeup{},
		store:    state.NewStore(filepath.Join(t.TempDir(), "state.json")),
	}

	powerMgr := &power.Manager{
		Providers: []power.WakeupProvider{h.wakeup},
		ShutdownCmd: func() error {
			h.shutdowns++
			return nil
		},
	}

	controller, err := NewController(conf, h.fetcher, h.renderer, h.panel, monitor, h.clock, powerMgr, h.store)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	h.controller = controller
	return h
}

func (h *harness) seedState(t *testing.T, st state.CycleState) {
	t.Helper()
	if err := h.store.Save(st); err != nil {
		t.Fatal(err)
	}
	h.controller.snapshot.setState(st)
}

func transientFailure() fetchResult {
	return fetchResult{err: &weather.FetchError{Kind: weather.FailTransientNetwork, Err: errors.New("dial timeout")}}
}

func goodWeather(at time.Time) fetchResult {
	return fetchResult{data: &weather.Data{
		City:       "Buffalo",
		ObservedAt: at,
		Current:    weather.Current{Temp: 4.2, Condition: "Clouds"},
	}}
}

func TestCycleSuccessResetsFailures(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 80}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{
		LastFullRefreshAt:   h.clock.now.Add(-time.Hour),
		ConsecutiveFailures: 2,
	})

	nextWake, poweredOff := h.controller.runCycle(context.Background())
	if poweredOff {
		t.Fatal("unexpected power off")
	}

	st, err := h.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", st.ConsecutiveFailures)
	}
	if st.LastGood == nil || st.LastGood.City != "Buffalo" {
		t.Errorf("LastGood = %+v, want cached snapshot", st.LastGood)
	}
	if !h.clock.synced {
		t.Error("expected RTC sync after a successful fetch")
	}

	// SoC 80 keeps the base interval.
	want := h.clock.now.Add(120 * time.Minute)
	if !nextWake.Equal(want) {
		t.Errorf("nextWake = %v, want %v", nextWake, want)
	}

	if len(h.renderer.calls) != 1 || h.renderer.calls[0].degraded != nil {
		t.Fatalf("renderer calls = %+v, want one clean render", h.renderer.calls)
	}
	if h.renderer.calls[0].mode != display.Partial {
		t.Errorf("mode = %v, want Partial", h.renderer.calls[0].mode)
	}
}

// Three consecutive failures open the breaker for base x4; the fourth
// cycle must not fetch at all and renders a degraded state instead.
func TestBreakerOpensAfterThreeFailures(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 80}},
		transientFailure(), transientFailure(), transientFailure())
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)})

	var nextWake time.Time
	for i := 0; i < 3; i++ {
		nextWake, _ = h.controller.runCycle(context.Background())
	}

	st, err := h.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	wantUntil := h.clock.now.Add(480 * time.Minute)
	if !st.BreakerOpenUntil.Equal(wantUntil) {
		t.Fatalf("BreakerOpenUntil = %v, want %v", st.BreakerOpenUntil, wantUntil)
	}
	// The open breaker pushes the wake past the battery interval.
	if !nextWake.Equal(wantUntil) {
		t.Errorf("nextWake = %v, want breaker cooldown %v", nextWake, wantUntil)
	}

	// Cycle 4: fetch skipped entirely (fakeFetcher fails the test on a
	// fourth call), degraded render with no cached data.
	h.controller.runCycle(context.Background())
	if h.fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", h.fetcher.calls)
	}

	last := h.renderer.calls[len(h.renderer.calls)-1]
	if last.degraded == nil {
		t.Fatal("expected degraded render while breaker is open")
	}
	if last.degraded.Kind != "" {
		t.Errorf("degraded kind = %q, want empty for a skipped fetch", last.degraded.Kind)
	}
	if last.data != nil {
		t.Errorf("data = %+v, want nil with no cached snapshot", last.data)
	}
}

func TestFailureKeepsCachedData(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 80}},
		fetchResult{err: &weather.FetchError{Kind: weather.FailRateLimited, Err: errors.New("429")}})
	cached := &weather.Data{City: "Buffalo", ObservedAt: h.clock.now.Add(-2 * time.Hour)}
	h.seedState(t, state.CycleState{
		LastFullRefreshAt: h.clock.now.Add(-time.Hour),
		LastGood:          cached,
		LastGoodAt:        h.clock.now.Add(-2 * time.Hour),
	})

	h.controller.runCycle(context.Background())

	call := h.renderer.calls[0]
	if call.data == nil || call.data.City != "Buffalo" {
		t.Errorf("render data = %+v, want prior cached snapshot", call.data)
	}
	if call.degraded == nil || call.degraded.Kind != weather.FailRateLimited {
		t.Errorf("degraded = %+v, want rate-limited annotation", call.degraded)
	}
	if call.degraded.LastGoodAt.IsZero() {
		t.Error("degraded annotation is missing the last-good timestamp")
	}
}

// An open breaker never suppresses the rolling 24h ghost-clearing
// repaint: mode is Full even though the fetch step was skipped.
func TestFullRefreshSurvivesOpenBreaker(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 80}})
	h.seedState(t, state.CycleState{
		LastFullRefreshAt: h.clock.now.Add(-25 * time.Hour),
		BreakerOpenUntil:  h.clock.now.Add(time.Hour),
		LastGood:          &weather.Data{City: "Buffalo"},
		LastGoodAt:        h.clock.now.Add(-3 * time.Hour),
	})

	h.controller.runCycle(context.Background())

	if h.fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 with open breaker", h.fetcher.calls)
	}
	call := h.renderer.calls[0]
	if call.mode != display.Full {
		t.Errorf("mode = %v, want Full despite open breaker", call.mode)
	}
	if call.degraded == nil || call.data == nil {
		t.Errorf("want degraded render of cached data, got data=%v degraded=%v", call.data, call.degraded)
	}

	st, err := h.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !st.LastFullRefreshAt.Equal(h.clock.now) {
		t.Errorf("LastFullRefreshAt = %v, want reset to now", st.LastFullRefreshAt)
	}
}

func TestFullRefreshRecordsAttemptDespitePanelError(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 80}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-25 * time.Hour)})
	h.panel.err = errors.New("spi write failed")

	_, poweredOff := h.controller.runCycle(context.Background())
	if poweredOff {
		t.Fatal("unexpected power off")
	}

	st, err := h.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	// Attempt time is recorded even though the write failed, so a flaky
	// panel cannot cause a full-refresh storm.
	if !st.LastFullRefreshAt.Equal(h.clock.now) {
		t.Errorf("LastFullRefreshAt = %v, want %v", st.LastFullRefreshAt, h.clock.now)
	}
}

func TestLowBatteryStretchesInterval(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 10}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)})

	nextWake, _ := h.controller.runCycle(context.Background())

	// 120 min base x3 for the 6-15% band.
	want := h.clock.now.Add(360 * time.Minute)
	if !nextWake.Equal(want) {
		t.Errorf("nextWake = %v, want %v", nextWake, want)
	}
}

func TestCriticalBatteryPowersOff(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 5}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)})

	nextWake, poweredOff := h.controller.runCycle(context.Background())
	if !poweredOff {
		t.Fatal("expected power off below the critical floor")
	}
	if h.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", h.shutdowns)
	}
	if len(h.wakeup.armedAt) != 1 || !h.wakeup.armedAt[0].Equal(nextWake) {
		t.Errorf("wake armed at %v, want %v", h.wakeup.armedAt, nextWake)
	}
}

func TestKeepAwakeSuppressesPowerOff(t *testing.T) {
	raw := &config.RawFileConfig{
		KeepAwake:  ptr.To(true),
		QuietHours: &power.QuietHours{Start: 0, End: 23},
	}
	h := newHarness(t, raw, fakeMonitor{sample: battery.Sample{SoC: 2}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)})

	_, poweredOff := h.controller.runCycle(context.Background())
	if poweredOff {
		t.Fatal("keep-awake must suppress power off unconditionally")
	}
	if h.shutdowns != 0 {
		t.Errorf("shutdowns = %d, want 0", h.shutdowns)
	}
}

func TestPowerOffRequiresArmedWake(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 5}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)})
	h.wakeup.err = errors.New("no rtc")

	_, poweredOff := h.controller.runCycle(context.Background())
	if poweredOff {
		t.Fatal("must not power off when the wake alarm cannot be armed")
	}
	if h.shutdowns != 0 {
		t.Errorf("shutdowns = %d, want 0", h.shutdowns)
	}
}

func TestSensorUnavailableIsConservative(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{err: battery.ErrUnavailable},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)})

	nextWake, poweredOff := h.controller.runCycle(context.Background())
	if poweredOff {
		t.Fatal("an absent sensor alone must not power off")
	}

	// Conservative band: base x4.
	want := h.clock.now.Add(480 * time.Minute)
	if !nextWake.Equal(want) {
		t.Errorf("nextWake = %v, want %v", nextWake, want)
	}
}

func TestCronForcesEarlyFullRefresh(t *testing.T) {
	raw := &config.RawFileConfig{FullRefreshCron: ptr.To("0 3 * * *")}
	h := newHarness(t, raw, fakeMonitor{sample: battery.Sample{SoC: 80}},
		goodWeather(time.Date(2025, 3, 1, 11, 58, 0, 0, time.UTC)))
	// Last full repaint yesterday evening; the 03:00 schedule has fired
	// since, even though the rolling 24h window has not elapsed.
	h.seedState(t, state.CycleState{LastFullRefreshAt: h.clock.now.Add(-14 * time.Hour)})

	h.controller.runCycle(context.Background())

	if h.renderer.calls[0].mode != display.Full {
		t.Errorf("mode = %v, want cron-forced Full", h.renderer.calls[0].mode)
	}
}

func TestCancelledContextSkipsPersistence(t *testing.T) {
	h := newHarness(t, nil, fakeMonitor{sample: battery.Sample{SoC: 80}},
		transientFailure())
	seed := state.CycleState{LastFullRefreshAt: h.clock.now.Add(-time.Hour)}
	h.seedState(t, seed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.controller.runCycle(ctx)

	// The interrupted cycle must leave the persisted state untouched so
	// it repeats identically on restart.
	st, err := h.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.ConsecutiveFailures != seed.ConsecutiveFailures {
		t.Errorf("persisted ConsecutiveFailures = %d, want %d", st.ConsecutiveFailures, seed.ConsecutiveFailures)
	}
}
