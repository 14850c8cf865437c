// Package wait polls a condition at a fixed interval until it holds or a
// deadline passes.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// Condition reports whether the awaited state has been reached. It must
// re-read the state it inspects; cached values are not trusted inside a wait.
type Condition func(ctx context.Context) (bool, error)

// Spec describes one bounded wait
type Spec struct {
	Description string
	Timeout     time.Duration
	Interval    time.Duration
}

// TimeoutError is returned when a condition did not hold before the timeout
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Elapsed     time.Duration
	Polls       int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s (limit %s, %d polls)",
		e.Elapsed, e.Description, e.Timeout, e.Polls)
}

// Engine runs waits against an injectable clock
type Engine struct {
	clock clock.Clock
	log   logrus.FieldLogger
}

// NewEngine creates an engine. A nil clock uses the wall clock.
func NewEngine(c clock.Clock, log logrus.FieldLogger) *Engine {
	if c == nil {
		c = clock.RealClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{clock: c, log: log.WithField("component", "wait")}
}

// Clock returns the clock the engine sleeps on
func (e *Engine) Clock() clock.Clock {
	return e.clock
}

// Await sleeps spec.Interval, evaluates cond and repeats until cond is true
// or spec.Timeout has elapsed. A condition error ends the wait immediately.
func (e *Engine) Await(ctx context.Context, spec Spec, cond Condition) error {
	if spec.Interval <= 0 {
		return fmt.Errorf("wait for %s: interval must be positive, got %s", spec.Description, spec.Interval)
	}

	start := e.clock.Now()
	polls := 0
	e.log.Infof("Waiting up to %s for %s", spec.Timeout, spec.Description)

	for {
		e.clock.Sleep(spec.Interval)
		if err := ctx.Err(); err != nil {
			return err
		}

		polls++
		done, err := cond(ctx)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", spec.Description, err)
		}
		if done {
			e.log.Infof("Finished waiting for %s after %d polls", spec.Description, polls)
			return nil
		}

		elapsed := e.clock.Since(start)
		e.log.Debugf("--> %s not reached after %s", spec.Description, elapsed)
		if elapsed >= spec.Timeout {
			return &TimeoutError{
				Description: spec.Description,
				Timeout:     spec.Timeout,
				Elapsed:     elapsed,
				Polls:       polls,
			}
		}
	}
}
