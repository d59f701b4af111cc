package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type unit struct {
	name      string
	component Component
}

// Runtime starts components in registration order and stops them in reverse.
type Runtime struct {
	units   []unit
	started []unit
	logger  *log.Entry
}

func NewRuntime() *Runtime {
	return &Runtime{logger: log.WithField("scope", "runtime")}
}

// Register appends a named component; nil components are skipped.
func (r *Runtime) Register(name string, component Component) *Runtime {
	if component == nil {
		return r
	}
	r.units = append(r.units, unit{name: name, component: component})
	return r
}

// Start brings every component up. When one fails, those already running
// are stopped before the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.started = make([]unit, 0, len(r.units))
	for _, u := range r.units {
		began := time.Now()
		if err := u.component.Start(ctx); err != nil {
			r.logger.WithError(err).WithField("component", u.name).Error("component failed to start")
			_ = r.stop(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start %s: %w", u.name, err)
		}
		r.logger.WithFields(log.Fields{
			"component": u.name,
			"took":      time.Since(began).String(),
		}).Debug("component started")
		r.started = append(r.started, u)
	}
	return nil
}

// Stop shuts down what Start brought up, collecting every failure.
func (r *Runtime) Stop(ctx context.Context) error {
	err := r.stop(ctx, r.started)
	r.started = nil
	return err
}

func (r *Runtime) stop(ctx context.Context, units []unit) error {
	var stopErr error
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		if err := u.component.Stop(ctx); err != nil {
			r.logger.WithError(err).WithField("component", u.name).Warn("component failed to stop")
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", u.name, err))
			continue
		}
		r.logger.WithField("component", u.name).Debug("component stopped")
	}
	return stopErr
}
