package daemon

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/paperwx/paperwx/pkg/battery"
	"github.com/paperwx/paperwx/pkg/breaker"
	"github.com/paperwx/paperwx/pkg/config"
	"github.com/paperwx/paperwx/pkg/display"
	"github.com/paperwx/paperwx/pkg/events"
	"github.com/paperwx/paperwx/pkg/power"
	"github.com/paperwx/paperwx/pkg/state"
	"github.com/paperwx/paperwx/pkg/weather"
)

// Phase is where the controller currently is in its cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseRendering  Phase = "rendering"
	PhaseDisplaying Phase = "displaying"
	PhaseSleeping   Phase = "sleeping"
)

// fetchTimeout bounds the single blocking fetch step. A timeout surfaces
// as a transient-network failure.
const fetchTimeout = 30 * time.Second

// Controller runs the fetch → render → display → sleep cycle. Exactly one
// cycle is in flight at a time; CycleState is mutated only between cycles
// and persisted at clean cycle boundaries.
type Controller struct {
	conf     config.Config
	fetcher  weather.Fetcher
	renderer display.Renderer
	panel    display.Panel
	monitor  battery.Monitor
	clock    power.Clock
	powerMgr *power.Manager
	store    *state.Store

	fullRefreshSchedule cron.Schedule

	// Events carries phase transitions to control-socket subscribers.
	Events *events.Hub

	// snapshot guards the fields the control socket reads.
	snapshot snapshotState

	// wakeCh breaks the sleep step early for a manually triggered cycle.
	wakeCh chan struct{}
}

func NewController(
	conf config.Config,
	fetcher weather.Fetcher,
	renderer display.Renderer,
	panel display.Panel,
	monitor battery.Monitor,
	clock power.Clock,
	powerMgr *power.Manager,
	store *state.Store,
) (*Controller, error) {
	c := &Controller{
		conf:     conf,
		Events:   events.NewHub(),
		fetcher:  fetcher,
		renderer: renderer,
		panel:    panel,
		monitor:  monitor,
		clock:    clock,
		powerMgr: powerMgr,
		store:    store,
		wakeCh:   make(chan struct{}, 1),
	}

	if expr := conf.FullRefreshCron(); expr != "" {
		schedule, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, err
		}
		c.fullRefreshSchedule = schedule
	}

	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	c.snapshot.setState(st)

	return c, nil
}

// TriggerCycle requests an immediate cycle, breaking the current sleep.
// No-op if a trigger is already pending.
func (c *Controller) TriggerCycle() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

func (c *Controller) setPhase(p Phase) {
	from := c.snapshot.swapPhase(p)
	if from != p {
		c.Events.Publish(events.CyclePhase, events.CyclePhaseEvent{
			From: string(from),
			To:   string(p),
			Ts:   time.Now().Unix(),
		})
	}
}

// Run executes cycles until ctx is cancelled or the appliance powers
// off. Never returns an error from within a cycle; the loop is designed
// to run unattended.
func (c *Controller) Run(ctx context.Context) {
	for {
		nextWake, poweredOff := c.runCycle(ctx)
		if poweredOff || ctx.Err() != nil {
			return
		}

		c.setPhase(PhaseSleeping)
		sleep := time.Until(nextWake)
		if sleep < 0 {
			sleep = 0
		}
		logrus.WithField("wakeAt", nextWake).Infof("sleeping %s", sleep.Round(time.Second))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setPhase(PhaseIdle)
			return
		case <-c.wakeCh:
			timer.Stop()
			logrus.Info("woken early by manual trigger")
		case <-timer.C:
		}
		c.setPhase(PhaseIdle)
	}
}

// RunOnce executes a single cycle and persists state, without sleeping.
func (c *Controller) RunOnce(ctx context.Context) {
	c.runCycle(ctx)
}

// runCycle walks one pass of the state machine and returns when to wake
// next and whether the machine is powering off.
func (c *Controller) runCycle(ctx context.Context) (nextWake time.Time, poweredOff bool) {
	st := c.snapshot.state()
	now := c.clock.Now()

	// Idle → Fetching: read the battery once; the sample is immutable
	// for the rest of the cycle.
	c.setPhase(PhaseFetching)
	sample := c.readBattery()
	if sample != nil {
		soc := sample.SoC
		st.LastKnownSoC = &soc
	}

	var data *weather.Data
	var degraded *display.Degraded

	if breaker.ShouldAttempt(st, now) {
		st, data, degraded = c.fetch(ctx, st, now, sample)
	} else {
		logrus.WithField("openUntil", st.BreakerOpenUntil).Info("breaker open, skipping fetch")
		degraded = &display.Degraded{
			At:         now,
			LastGoodAt: st.LastGoodAt,
			Battery:    sample,
		}
	}
	if data == nil {
		// Render whatever we still have from the last good fetch.
		data = st.LastGood
	}

	if ctx.Err() != nil {
		// Abandon before touching state on disk; the interrupted cycle
		// repeats identically on restart.
		return now, false
	}

	// Rendering → Displaying.
	c.setPhase(PhaseRendering)
	mode := display.SelectMode(st.LastFullRefreshAt, now)
	if mode != display.Full && c.cronFullDue(st, now) {
		logrus.Info("scheduled full refresh due")
		mode = display.Full
	}
	if mode == display.Full {
		// Attempt time, recorded whether or not the panel write works,
		// so a flaky panel cannot cause a full-refresh storm.
		st.LastFullRefreshAt = now
	}

	frame, err := c.renderer.Render(data, degraded, mode)
	if err != nil {
		logrus.Errorf("render failed: %v", err)
	} else {
		c.setPhase(PhaseDisplaying)
		if err := c.panel.Display(frame, mode); err != nil {
			// Reported, not retried: an immediate hardware retry only
			// burns power.
			logrus.Errorf("panel write failed: %v", err)
		}
	}

	// Displaying → Sleeping: decide when to wake and whether to stay
	// powered at all.
	now = c.clock.Now()
	effective := power.EffectiveInterval(c.conf.RefreshMinutes(), sample)
	nextWake = now.Add(effective)
	if st.BreakerOpen(now) && st.BreakerOpenUntil.After(nextWake) {
		nextWake = st.BreakerOpenUntil
	}

	c.snapshot.update(st, sample, nextWake)
	if err := c.store.Save(st); err != nil {
		logrus.Errorf("failed to persist cycle state: %v", err)
	}

	keepAwake := c.conf.KeepAwake()
	if power.ShouldForcePowerOff(sample, now, c.conf.QuietHours(), keepAwake, c.conf.CriticalSoC()) {
		if err := c.powerMgr.ScheduleWakeup(nextWake); err != nil {
			// Never power off without a way back; degrade to an
			// in-process sleep instead.
			logrus.Errorf("failed to arm wake alarm, staying up: %v", err)
			return nextWake, false
		}
		if err := c.powerMgr.PowerOff(); err != nil {
			logrus.Errorf("power off failed: %v", err)
			return nextWake, false
		}
		return nextWake, true
	}

	return nextWake, false
}

// fetch runs the bounded fetch step and records the outcome on the
// breaker.
func (c *Controller) fetch(ctx context.Context, st state.CycleState, now time.Time, sample *battery.Sample) (state.CycleState, *weather.Data, *display.Degraded) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	data, err := c.fetcher.Fetch(fetchCtx)
	if err != nil {
		kind := weather.KindOf(err)
		logrus.WithField("kind", kind).Errorf("fetch failed: %v", err)
		st = breaker.RecordFailure(st, now, time.Duration(c.conf.RefreshMinutes())*time.Minute)
		return st, nil, &display.Degraded{
			Kind:       kind,
			At:         now,
			LastGoodAt: st.LastGoodAt,
			Battery:    sample,
		}
	}

	st = breaker.RecordSuccess(st)
	st.LastGood = data
	st.LastGoodAt = now

	// A successful fetch proves the network clock is sane; push it to
	// the battery-backed RTC so quiet hours survive power-off cycles.
	if err := c.clock.SetFromNetwork(data.ObservedAt); err != nil {
		logrus.Debugf("RTC sync failed: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"city":       data.City,
		"observedAt": data.ObservedAt,
	}).Info("weather fetched")
	return st, data, nil
}

// cronFullDue reports whether the optional cron schedule has fired since
// the last full refresh. The schedule can only force Full earlier, never
// defer the rolling-window refresh.
func (c *Controller) cronFullDue(st state.CycleState, now time.Time) bool {
	if c.fullRefreshSchedule == nil {
		return false
	}
	return !c.fullRefreshSchedule.Next(st.LastFullRefreshAt).After(now)
}

func (c *Controller) readBattery() *battery.Sample {
	sample, err := c.monitor.Sample()
	if err != nil {
		// Fail safe: an absent sensor reads as the most conservative
		// battery band, never as a healthy one.
		logrus.Warnf("battery read failed, assuming conservative band: %v", err)
		return nil
	}
	return &sample
}
