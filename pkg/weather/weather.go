package weather

import (
	"context"
	"fmt"
	"time"
)

// FailureKind classifies why a fetch failed. The scheduling loop treats
// all kinds identically for breaker purposes; the kind only annotates the
// degraded screen shown to the user.
type FailureKind string

const (
	FailTransientNetwork FailureKind = "transient-network"
	FailRateLimited      FailureKind = "rate-limited"
	FailMalformed        FailureKind = "malformed-response"
	FailAuth             FailureKind = "auth-error"
)

// FetchError is the typed failure returned by a Fetcher.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("weather fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error. Unknown errors are
// treated as transient network problems, the most retryable kind.
func KindOf(err error) FailureKind {
	if fe, ok := err.(*FetchError); ok {
		return fe.Kind
	}
	return FailTransientNetwork
}

// Fetcher retrieves a weather snapshot. Implementations must be
// bounded-time and must not retry internally; the scheduling loop owns
// retry policy via its circuit breaker.
type Fetcher interface {
	Fetch(ctx context.Context) (*Data, error)
}

// Data is the snapshot rendered onto the panel. A compact subset of the
// provider response; layout details live in the renderer.
type Data struct {
	City       string    `json:"city"`
	ObservedAt time.Time `json:"observedAt"`
	Current    Current   `json:"current"`
	Hourly     []Hour    `json:"hourly,omitempty"`
	Daily      []Day     `json:"daily,omitempty"`
}

type Current struct {
	Temp      float64   `json:"temp"`
	FeelsLike float64   `json:"feelsLike"`
	Condition string    `json:"condition"`
	Icon      string    `json:"icon"`
	Humidity  int       `json:"humidity"`
	WindSpeed float64   `json:"windSpeed"`
	Sunrise   time.Time `json:"sunrise"`
	Sunset    time.Time `json:"sunset"`
}

type Hour struct {
	At           time.Time `json:"at"`
	Temp         float64   `json:"temp"`
	Icon         string    `json:"icon"`
	PrecipChance float64   `json:"precipChance"`
}

type Day struct {
	At   time.Time `json:"at"`
	High float64   `json:"high"`
	Low  float64   `json:"low"`
	Icon string    `json:"icon"`
}
