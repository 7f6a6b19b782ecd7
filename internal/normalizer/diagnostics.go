package normalizer

import (
	"errors"
	"sync"

	"notiontable/internal/logger"
	"notiontable/internal/models"
)

// Diagnostic causes. A Diagnostic's Err always wraps one of these.
var (
	ErrUnsupportedType  = errors.New("property type not supported")
	ErrInvalidDate      = errors.New("invalid date")
	ErrMalformedPayload = errors.New("malformed property payload")
)

// Diagnostic describes a property that could not be normalized.
// The property's value degrades to its neutral value; processing continues.
type Diagnostic struct {
	Err      error
	Property string
	Type     models.PropertyType
}

func (d Diagnostic) Error() string {
	if d.Property == "" {
		return d.Err.Error()
	}

	return d.Property + ": " + d.Err.Error()
}

// DiagnosticSink receives diagnostics emitted while parsing properties.
type DiagnosticSink interface {
	Report(d Diagnostic)
}

// DiagnosticFunc adapts a plain function to DiagnosticSink.
type DiagnosticFunc func(Diagnostic)

// Report calls f(d).
func (f DiagnosticFunc) Report(d Diagnostic) { f(d) }

// DiscardDiagnostics drops every diagnostic.
var DiscardDiagnostics DiagnosticSink = DiagnosticFunc(func(Diagnostic) {})

// LogDiagnostics reports diagnostics as warnings on the given logger.
func LogDiagnostics(log *logger.Logger) DiagnosticSink {
	return DiagnosticFunc(func(d Diagnostic) {
		log.Warn("property not normalized",
			"property", d.Property,
			"type", string(d.Type),
			"error", d.Err,
		)
	})
}

// Collector accumulates diagnostics for later inspection.
type Collector struct {
	items []Diagnostic
	mu    sync.Mutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report stores d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)

	return out
}

// Count returns how many diagnostics matched target via errors.Is.
func (c *Collector) Count(target error) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, d := range c.items {
		if errors.Is(d.Err, target) {
			n++
		}
	}

	return n
}

// Tee fans a diagnostic out to several sinks.
func Tee(sinks ...DiagnosticSink) DiagnosticSink {
	return DiagnosticFunc(func(d Diagnostic) {
		for _, s := range sinks {
			if s != nil {
				s.Report(d)
			}
		}
	})
}
