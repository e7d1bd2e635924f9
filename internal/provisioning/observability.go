package provisioning

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Observer receives structured progress during provisioning and collects
// advisory warnings for the run summary. Warnings never abort the run; they
// exist so best-effort failures (pruning, firewall apply fallback, missing
// optional material) surface at the end instead of vanishing into logs.
type Observer interface {
	// Printf logs free-form progress.
	Printf(format string, v ...any)

	// Resource records the outcome of an exists-or-create decision.
	Resource(kind, name string, created bool)

	// Warn records an advisory failure. err may be nil.
	Warn(stage, message string, err error)

	// Warnings returns everything recorded by Warn, in order.
	Warnings() []Warning
}

// Warning is one advisory failure.
type Warning struct {
	Stage   string
	Message string
	Err     error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", w.Stage, w.Message, w.Err)
	}
	return fmt.Sprintf("[%s] %s", w.Stage, w.Message)
}

// LogObserver implements Observer on a logrus logger.
type LogObserver struct {
	log *logrus.Logger

	mu       sync.Mutex
	warnings []Warning
}

// NewLogObserver wraps a logrus logger.
func NewLogObserver(log *logrus.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) Printf(format string, v ...any) {
	o.log.Infof(format, v...)
}

func (o *LogObserver) Resource(kind, name string, created bool) {
	entry := o.log.WithFields(logrus.Fields{"kind": kind, "name": name})
	if created {
		entry.Info("resource created")
	} else {
		entry.Info("resource exists")
	}
}

func (o *LogObserver) Warn(stage, message string, err error) {
	o.mu.Lock()
	o.warnings = append(o.warnings, Warning{Stage: stage, Message: message, Err: err})
	o.mu.Unlock()

	entry := o.log.WithField("stage", stage)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn(message)
}

func (o *LogObserver) Warnings() []Warning {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Warning, len(o.warnings))
	copy(out, o.warnings)
	return out
}
