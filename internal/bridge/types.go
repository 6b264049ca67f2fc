package bridge

import "github.com/Iron-Ham/chatcore/internal/handle"

// Source yields engine events in engine order.
type Source interface {
	// Next blocks until an event is available. It returns false once the
	// source has been torn down and drained. A source that also implements
	// io.Closer is closed by the bridge after that.
	Next() (handle.EventData, bool)
}

// StringResponder answers engine requests for translated stock strings.
type StringResponder interface {
	// RespondStockString hands the translation of stockID to the engine and
	// reports whether one was available.
	RespondStockString(accountID, stockID uint32) bool
}

// Recorder persists raw events.
type Recorder interface {
	Record(handle.EventData) error
}
