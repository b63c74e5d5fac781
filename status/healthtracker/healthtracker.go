// Package healthtracker exposes recurring store write failures through the
// healthz endpoint.
package healthtracker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"
)

// Config sets the thresholds for reporting consecutive failures of an
// activity as a warning or an error.
type Config struct {
	WarnSequence       uint32        `yaml:"warn_sequence"`
	ErrorSequence      uint32        `yaml:"error_sequence"`
	WarnDuration       time.Duration `yaml:"warn_duration"`
	ErrorDuration      time.Duration `yaml:"error_duration"`
	EvaluationInterval time.Duration `yaml:"interval"`
}

// DefaultConfig tolerates a short burst of retried failures before the
// health status degrades.
var DefaultConfig = Config{
	WarnSequence:       3,
	ErrorSequence:      10,
	WarnDuration:       2 * time.Minute,
	ErrorDuration:      10 * time.Minute,
	EvaluationInterval: 5 * time.Second,
}

// Tracker counts consecutive failures of one named activity
type Tracker struct {
	conf     Config
	name     string
	activity string
	sequence atomic.Uint32
	since    atomic.Time
	log      logrus.FieldLogger
}

// New creates a Tracker and registers its healthz checks under the given
// name prefix.
func New(conf Config, name, activity string) *Tracker {
	t := &Tracker{
		conf:     conf,
		name:     name,
		activity: activity,
		log:      logrus.WithField("healthtracker", name),
	}

	healthz.Register(name+"_failed_attempts", conf.EvaluationInterval, func() error {
		seq := t.sequence.Load()
		switch {
		case seq >= conf.ErrorSequence:
			return fmt.Errorf("failed to %s %d consecutive times", activity, seq)
		case seq >= conf.WarnSequence:
			return healthz.Warnf("failed to %s %d consecutive times", activity, seq)
		}
		return nil
	})
	healthz.Register(name+"_failed_duration", conf.EvaluationInterval, func() error {
		if t.sequence.Load() == 0 {
			return nil
		}
		failingFor := time.Since(t.since.Load()).Round(time.Second)
		switch {
		case failingFor >= conf.ErrorDuration:
			return fmt.Errorf("failing to %s for %s", activity, failingFor)
		case failingFor >= conf.WarnDuration:
			return healthz.Warnf("failing to %s for %s", activity, failingFor)
		}
		return nil
	})
	return t
}

// AddFailure records one failed attempt
func (t *Tracker) AddFailure() {
	if t.sequence.Inc() == 1 {
		t.since.Store(time.Now())
	}
}

// AddSuccess resets the consecutive failure count
func (t *Tracker) AddSuccess() {
	t.sequence.Store(0)
}

// Failing reports whether the last attempt failed
func (t *Tracker) Failing() bool {
	return t.sequence.Load() > 0
}
