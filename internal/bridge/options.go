package bridge

import (
	"github.com/Iron-Ham/chatcore/internal/logging"
)

// defaultQueueSize is the capacity of the channel between pump and dispatcher.
const defaultQueueSize = 256

// Option configures a Bridge.
type Option func(*config)

type config struct {
	queueSize int
	logger    *logging.Logger
	responder StringResponder
	recorder  Recorder
}

// WithQueueSize sets how many translated notifications may wait for the
// dispatcher. A zero or negative value is replaced with the default (256).
func WithQueueSize(n int) Option {
	return func(c *config) {
		c.queueSize = n
	}
}

// WithLogger sets the logger for the bridge.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStringResponder sets who answers engine translation requests.
func WithStringResponder(r StringResponder) Option {
	return func(c *config) {
		c.responder = r
	}
}

// WithRecorder records every raw event before it is translated.
func WithRecorder(r Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}
