// Package notify carries user-visible notices and navigation requests out of
// domain operations.
package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/model"
)

// Sink receives success and error toasts.
type Sink interface {
	Success(message string)
	Error(message string)
}

// Navigator receives route changes requested by an operation.
type Navigator interface {
	GoTo(path string)
}

// Recorder keeps notices in order until they are drained.
type Recorder struct {
	mu      sync.Mutex
	notices []model.Notice
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Success(message string) { r.add(model.NoticeSuccess, message) }
func (r *Recorder) Error(message string)   { r.add(model.NoticeError, message) }

func (r *Recorder) add(level model.NoticeLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, model.Notice{Level: level, Message: message})
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []model.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notice(nil), r.notices...)
}

// Drain returns and forgets the recorded notices.
func (r *Recorder) Drain() []model.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// LogSink writes notices to the application log.
type LogSink struct {
	entry *log.Entry
}

// NewLogSink tags every notice with the given component name.
func NewLogSink(component string) *LogSink {
	return &LogSink{entry: log.WithField("component", component)}
}

func (s *LogSink) Success(message string) { s.entry.Infof("[Notice] success: %s", message) }
func (s *LogSink) Error(message string)   { s.entry.Warnf("[Notice] error: %s", message) }

type tee []Sink

func (t tee) Success(message string) {
	for _, s := range t {
		s.Success(message)
	}
}

func (t tee) Error(message string) {
	for _, s := range t {
		s.Error(message)
	}
}

// Tee fans notices out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Discard drops every notice.
var Discard Sink = tee(nil)

// RedirectRecorder remembers the last requested route.
type RedirectRecorder struct {
	mu   sync.Mutex
	path *string
}

func NewRedirectRecorder() *RedirectRecorder { return &RedirectRecorder{} }

func (r *RedirectRecorder) GoTo(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = &path
}

// Take returns the pending route, if any, and clears it.
func (r *RedirectRecorder) Take() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.path
	r.path = nil
	return p
}
