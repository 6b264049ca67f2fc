package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"

	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/tui/styles"
)

// typeFilter matches event types such as "message.incoming" against a glob
// with '.' as separator: "message.*" matches one level, "**" any.
type typeFilter struct {
	g glob.Glob
}

func newTypeFilter(pattern string) (*typeFilter, error) {
	if pattern == "" {
		return &typeFilter{}, nil
	}
	g, err := glob.Compile(pattern, '.')
	if err != nil {
		return nil, fmt.Errorf("invalid --type pattern %q: %w", pattern, err)
	}
	return &typeFilter{g: g}, nil
}

func (f *typeFilter) Match(eventType string) bool {
	return f.g == nil || f.g.Match(eventType)
}

// eventDetail renders the payload of a notification as key=value pairs.
func eventDetail(ev event.Event) string {
	switch e := ev.(type) {
	case event.LogEvent:
		return fmt.Sprintf("level=%s %s", e.Level, strconv.Quote(e.Message))
	case event.MessagesChangedEvent:
		return fmt.Sprintf("chat=%d msg=%d", e.ChatID, e.MsgID)
	case event.MessageStateEvent:
		return fmt.Sprintf("change=%s chat=%d msg=%d", e.Change, e.ChatID, e.MsgID)
	case event.IncomingMessageEvent:
		if e.Bunch {
			return "bunch"
		}
		return fmt.Sprintf("chat=%d msg=%d", e.ChatID, e.MsgID)
	case event.MessageDeletedEvent:
		return fmt.Sprintf("chat=%d msg=%d", e.ChatID, e.MsgID)
	case event.MessagesNoticedEvent:
		return fmt.Sprintf("chat=%d", e.ChatID)
	case event.ChatModifiedEvent:
		return fmt.Sprintf("chat=%d", e.ChatID)
	case event.EphemeralTimerModifiedEvent:
		return fmt.Sprintf("chat=%d timer=%d", e.ChatID, e.Timer)
	case event.ChatDeletedEvent:
		return fmt.Sprintf("chat=%d", e.ChatID)
	case event.ContactsChangedEvent:
		return fmt.Sprintf("contact=%d", e.ContactID)
	case event.ProgressEvent:
		s := fmt.Sprintf("progress=%d", e.Progress)
		if e.ContactID != 0 {
			s += fmt.Sprintf(" contact=%d", e.ContactID)
		}
		if e.Message != "" {
			s += " " + strconv.Quote(e.Message)
		}
		return s
	case event.AccountsChangedEvent:
		return fmt.Sprintf("item=%t", e.Item)
	case event.TranslationRequestEvent:
		return fmt.Sprintf("stock=%d answered=%t", e.StockID, e.Answered)
	case event.BackupFileWrittenEvent:
		return "path=" + e.Path
	case event.WebxdcStatusUpdateEvent:
		return fmt.Sprintf("msg=%d serial=%d", e.MsgID, e.Serial)
	case event.WebxdcRealtimeDataEvent:
		return fmt.Sprintf("msg=%d bytes=%d", e.MsgID, len(e.Data))
	case event.EngineEvent:
		return fmt.Sprintf("data1=%d data2=%d data1_str=%q data2_str=%q", e.Data1, e.Data2, e.Data1Str, e.Data2Str)
	default:
		return ""
	}
}

func eventStyle(ev event.Event) lipgloss.Style {
	switch e := ev.(type) {
	case event.LogEvent:
		switch e.Level {
		case event.LogError:
			return styles.Error
		case event.LogWarning:
			return styles.Warning
		}
		return styles.Muted
	case event.ProgressEvent:
		if e.Error {
			return styles.Error
		}
		return styles.Primary
	case event.IncomingMessageEvent:
		return styles.Secondary
	}
	return styles.Text
}

// formatEvent renders one notification as a single line. color enables
// terminal styling.
func formatEvent(ev event.Event, color bool) string {
	ts := ev.Timestamp().Format("15:04:05.000")
	kind := ev.EventType()
	if color {
		ts = styles.Muted.Render(ts)
		kind = eventStyle(ev).Render(kind)
	}
	line := fmt.Sprintf("%s acct=%d %s", ts, ev.AccountID(), kind)
	if d := eventDetail(ev); d != "" {
		line += " " + d
	}
	return line
}
