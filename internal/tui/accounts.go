package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/chatcore/internal/tui/styles"
	"github.com/Iron-Ham/chatcore/internal/util"
)

const (
	maxAddrWidth = 40
	maxNameWidth = 24
)

// AccountRow is one line of an account listing.
type AccountRow struct {
	ID          uint32
	Addr        string
	DisplayName string
	Configured  bool
	Selected    bool
	Fresh       int
}

func (r AccountRow) status() string {
	if r.Configured {
		return "configured"
	}
	return "unconfigured"
}

// RenderAccounts renders rows as an aligned table followed by the IO state
// line. The selected account is marked with an arrow.
func RenderAccounts(rows []AccountRow, ioState string) string {
	if len(rows) == 0 {
		return styles.Muted.Render("no accounts") + "\n"
	}

	header := []string{"", "ID", "ADDRESS", "NAME", "STATUS", "FRESH"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		marker := ""
		if r.Selected {
			marker = styles.SelectedMarker.Render("→")
		}
		addr := util.Cell(r.Addr, maxAddrWidth)
		if addr == "" {
			addr = styles.Muted.Render("-")
		}
		cells = append(cells, []string{
			marker,
			strconv.FormatUint(uint64(r.ID), 10),
			addr,
			util.Cell(r.DisplayName, maxNameWidth),
			styles.Status(r.status()),
			strconv.Itoa(r.Fresh),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	for i, h := range header {
		b.WriteString(styles.TableHeader.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range cells {
		for i, c := range row {
			b.WriteString(styles.TableCell.Width(widths[i] + 2).Render(c))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render("io: ") + styles.Status(ioState))
	b.WriteString("\n")
	return b.String()
}
