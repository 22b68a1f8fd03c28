package config

import (
	"encoding/json"
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/paperwx/paperwx/pkg/power"
	"github.com/paperwx/paperwx/pkg/utils/ptr"
)

var defaultFileConfig = &RawFileConfig{
	Units:          ptr.To("metric"),
	RefreshMinutes: ptr.To(120),
	// Below this charge the appliance powers off instead of sleeping.
	CriticalSoC: ptr.To(8),
	KeepAwake:   ptr.To(false),
	HourlyCount: ptr.To(8),
	DailyCount:  ptr.To(5),
}

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

type RawFileConfig struct {
	APIKey          *string           `json:"apiKey,omitempty"`
	Latitude        *float64          `json:"lat,omitempty"`
	Longitude       *float64          `json:"lon,omitempty"`
	City            *string           `json:"city,omitempty"`
	Units           *string           `json:"units,omitempty"`
	RefreshMinutes  *int              `json:"refreshMinutes,omitempty"`
	CriticalSoC     *int              `json:"criticalSoc,omitempty"`
	QuietHours      *power.QuietHours `json:"quietHours,omitempty"`
	KeepAwake       *bool             `json:"keepAwake,omitempty"`
	FullRefreshCron *string           `json:"fullRefreshCron,omitempty"`
	HourlyCount     *int              `json:"hourlyCount,omitempty"`
	DailyCount      *int              `json:"dailyCount,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	return &RawFileConfig{
		APIKey:          ptr.To(c.APIKey()),
		Latitude:        ptr.To(c.Latitude()),
		Longitude:       ptr.To(c.Longitude()),
		City:            ptr.To(c.City()),
		Units:           ptr.To(c.Units()),
		RefreshMinutes:  ptr.To(c.RefreshMinutes()),
		CriticalSoC:     ptr.To(c.CriticalSoC()),
		QuietHours:      c.QuietHours(),
		KeepAwake:       ptr.To(c.KeepAwake()),
		FullRefreshCron: ptr.To(c.FullRefreshCron()),
		HourlyCount:     ptr.To(c.HourlyCount()),
		DailyCount:      ptr.To(c.DailyCount()),
	}, nil
}

func (f *File) APIKey() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.APIKey != nil {
		return *f.c.APIKey
	}
	return ""
}

func (f *File) Latitude() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Latitude != nil {
		return *f.c.Latitude
	}
	return 0
}

func (f *File) Longitude() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Longitude != nil {
		return *f.c.Longitude
	}
	return 0
}

func (f *File) City() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.City != nil {
		return *f.c.City
	}
	return ""
}

func (f *File) Units() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Units != nil {
		return *f.c.Units
	}
	return *defaultFileConfig.Units
}

func (f *File) RefreshMinutes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.RefreshMinutes != nil {
		return *f.c.RefreshMinutes
	}
	return *defaultFileConfig.RefreshMinutes
}

func (f *File) CriticalSoC() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.CriticalSoC != nil {
		return *f.c.CriticalSoC
	}
	return *defaultFileConfig.CriticalSoC
}

func (f *File) QuietHours() *power.QuietHours {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.QuietHours
}

func (f *File) KeepAwake() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.KeepAwake != nil {
		return *f.c.KeepAwake
	}
	return *defaultFileConfig.KeepAwake
}

func (f *File) FullRefreshCron() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.FullRefreshCron != nil {
		return *f.c.FullRefreshCron
	}
	return ""
}

func (f *File) HourlyCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.HourlyCount != nil {
		return *f.c.HourlyCount
	}
	return *defaultFileConfig.HourlyCount
}

func (f *File) DailyCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.DailyCount != nil {
		return *f.c.DailyCount
	}
	return *defaultFileConfig.DailyCount
}

func (f *File) SetKeepAwake(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.KeepAwake = ptr.To(v)
}

func (f *File) SetRefreshMinutes(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.RefreshMinutes = ptr.To(v)
}

// Validate checks constraints that would otherwise only surface mid-cycle.
func (f *File) Validate() error {
	if f.APIKey() == "" {
		return pkgerrors.New("apiKey must be set")
	}
	if f.RefreshMinutes() <= 0 {
		return pkgerrors.New("refreshMinutes must be positive")
	}
	if soc := f.CriticalSoC(); soc < 0 || soc > 100 {
		return pkgerrors.Errorf("criticalSoc must be between 0 and 100, got %d", soc)
	}
	if u := f.Units(); u != "metric" && u != "imperial" {
		return pkgerrors.Errorf("units must be metric or imperial, got %q", u)
	}
	if q := f.QuietHours(); q != nil {
		if q.Start < 0 || q.Start > 23 || q.End < 0 || q.End > 23 {
			return pkgerrors.New("quietHours start and end must be hours between 0 and 23")
		}
		if q.Start == q.End {
			return pkgerrors.New("quietHours start and end cannot be identical")
		}
	}
	if expr := f.FullRefreshCron(); expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return pkgerrors.Wrapf(err, "invalid fullRefreshCron %q", expr)
		}
	}
	return nil
}

func (f *File) Load() error {
	file, err := os.Open(f.filepath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logrus.Errorf("failed to close config file: %v", err)
		}
	}()

	c := &RawFileConfig{}
	if err := json.NewDecoder(file).Decode(c); err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	f.mu.Lock()
	f.c = c
	f.mu.Unlock()

	return f.Validate()
}

func (f *File) Save() error {
	f.mu.RLock()
	c := f.c
	f.mu.RUnlock()

	file, err := os.OpenFile(f.filepath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logrus.Errorf("failed to close config file: %v", err)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

// LogrusFields returns the non-secret config as structured log fields.
func (f *File) LogrusFields() logrus.Fields {
	fields := logrus.Fields{
		"city":           f.City(),
		"units":          f.Units(),
		"refreshMinutes": f.RefreshMinutes(),
		"criticalSoc":    f.CriticalSoC(),
		"keepAwake":      f.KeepAwake(),
	}
	if q := f.QuietHours(); q != nil {
		fields["quietHours"] = *q
	}
	if expr := f.FullRefreshCron(); expr != "" {
		fields["fullRefreshCron"] = expr
	}
	return fields
}
