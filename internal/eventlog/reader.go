package eventlog

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Iron-Ham/chatcore/internal/codec"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/handle"
)

// Reader replays a log. Next makes it usable as the bridge's event source.
type Reader struct {
	file   *os.File
	zr     *zstd.Decoder
	dec    *codec.Decoder
	header Header

	mu   sync.Mutex
	last Record
	err  error
}

// Open reads the header of the log at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open event log")
	}
	r := &Reader{file: f}

	var src io.Reader = bufio.NewReader(f)
	if compressed(path) {
		zr, err := zstd.NewReader(src)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, "create zstd reader")
		}
		r.zr = zr
		src = zr
	}
	r.dec = codec.NewDecoder(src)

	if err := r.dec.Decode(&r.header); err != nil {
		_ = r.Close()
		return nil, errors.Wrap(err, "read event log header")
	}
	if r.header.Version > FormatVersion {
		_ = r.Close()
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", r.header.Version)
	}
	return r, nil
}

// Header returns the log header.
func (r *Reader) Header() Header { return r.header }

// NextRecord returns the next record. It returns io.EOF at the clean end of
// the log.
func (r *Reader) NextRecord() (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return Record{}, r.err
	}
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if !errors.Is(err, io.EOF) {
			err = errors.Wrapf(err, "read record after seq %d", r.last.Seq)
		}
		r.err = err
		return Record{}, err
	}
	r.last = rec
	return rec, nil
}

// Next returns the next event. It reports false at the end of the log or on
// a read error; Err tells the two apart.
func (r *Reader) Next() (handle.EventData, bool) {
	rec, err := r.NextRecord()
	if err != nil {
		return handle.EventData{}, false
	}
	return rec.Event, true
}

// Err returns the first read error other than a clean end of log.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if errors.Is(r.err, io.EOF) {
		return nil
	}
	return r.err
}

// Close releases the file.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	return r.file.Close()
}

// ReadAll returns the header and every record of the log at path.
func ReadAll(path string) (Header, []Record, error) {
	r, err := Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer func() { _ = r.Close() }()

	var records []Record
	for {
		rec, err := r.NextRecord()
		if errors.Is(err, io.EOF) {
			return r.header, records, nil
		}
		if err != nil {
			return r.header, records, err
		}
		records = append(records, rec)
	}
}
