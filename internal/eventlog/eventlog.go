// Package eventlog records raw engine events to a file and replays them as
// an event source.
//
// A log is a CBOR sequence: one [Header] followed by one [Record] per event.
// Paths ending in ".zst" are zstd-compressed.
package eventlog

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/Iron-Ham/chatcore/internal/codec"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/handle"
	"github.com/Iron-Ham/chatcore/internal/logging"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// ErrUnsupportedVersion is returned when a log was written by a newer format.
var ErrUnsupportedVersion = errors.New("eventlog: unsupported format version")

// Header opens every log.
type Header struct {
	Version   int       `cbor:"1,keyasint"`
	SessionID string    `cbor:"2,keyasint"`
	Started   time.Time `cbor:"3,keyasint"`
}

// Record is one logged event.
type Record struct {
	Seq uint64 `cbor:"1,keyasint"`
	// AtUnixNano keeps sub-second precision, which deterministic CBOR
	// time encoding drops.
	AtUnixNano int64            `cbor:"2,keyasint"`
	Event      handle.EventData `cbor:"3,keyasint"`
}

// Time returns when the event was recorded.
func (r Record) Time() time.Time { return time.Unix(0, r.AtUnixNano).UTC() }

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder appends events to a log file. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	zw     *zstd.Encoder
	enc    *codec.Encoder
	header Header
	seq    uint64
	closed bool

	now    func() time.Time
	logger *logging.Logger
}

// Create truncates or creates path and writes the header.
func Create(path string, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		now:    time.Now,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create event log")
	}
	r.file = f
	r.buf = bufio.NewWriter(f)

	var w io.Writer = r.buf
	if compressed(path) {
		zw, err := zstd.NewWriter(r.buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, "create zstd writer")
		}
		r.zw = zw
		w = zw
	}
	r.enc = codec.NewEncoder(w)

	r.header = Header{
		Version:   FormatVersion,
		SessionID: uuid.NewString(),
		Started:   r.now().UTC(),
	}
	if err := r.enc.Encode(r.header); err != nil {
		_ = r.Close()
		return nil, errors.Wrap(err, "write event log header")
	}
	r.logger = r.logger.WithComponent("eventlog").With("session_id", r.header.SessionID)
	r.logger.Info("event log created", "path", path, "compressed", r.zw != nil)
	return r, nil
}

// Header returns the header written at creation.
func (r *Recorder) Header() Header { return r.header }

// Count returns how many events were recorded.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Record appends one event.
func (r *Recorder) Record(ev handle.EventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.ErrReleased
	}
	r.seq++
	rec := Record{Seq: r.seq, AtUnixNano: r.now().UnixNano(), Event: ev}
	if err := r.enc.Encode(rec); err != nil {
		return errors.Wrapf(err, "record event %d", r.seq)
	}
	return nil
}

// Flush pushes buffered records to the file. For compressed logs the
// current zstd frame is finished.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if r.zw != nil {
		if err := r.zw.Flush(); err != nil {
			return err
		}
	}
	return r.buf.Flush()
}

// Close flushes and closes the file. It is safe to call multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.zw != nil {
		errs = append(errs, r.zw.Close())
	}
	errs = append(errs, r.buf.Flush(), r.file.Sync(), r.file.Close())
	r.logger.Info("event log closed", "events", r.seq)
	return errors.Join(errs...)
}
