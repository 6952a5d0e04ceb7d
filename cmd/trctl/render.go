package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/transmission"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	activeStyle = cellStyle.Foreground(lipgloss.Color("2"))
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("8"))
)

const statusColumn = 4

func renderTorrents(w io.Writer, torrents []transmission.Torrent, dec transmission.StatusDecoder) {
	rows := make([][]string, 0, len(torrents))
	for _, t := range torrents {
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			fmt.Sprintf("%.0f%%", t.PercentDone*100),
			humanBytes(t.TotalSize),
			formatETA(t.ETA),
			dec.StatusString(t.Status),
			t.Name,
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DONE", "SIZE", "ETA", "STATUS", "NAME").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != statusColumn || row < 0 || row >= len(rows) {
				return cellStyle
			}
			switch rows[row][statusColumn] {
			case "Downloading", "Seeding":
				return activeStyle
			case "Stopped", protocol.StatusUnknown:
				return mutedStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintf(w, "%d torrent(s)\n", len(torrents))
}

type torrentView struct {
	transmission.Torrent
	StatusText string `json:"statusText"`
}

func withStatusText(torrents []transmission.Torrent, dec transmission.StatusDecoder) []torrentView {
	out := make([]torrentView, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, torrentView{Torrent: t, StatusText: dec.StatusString(t.Status)})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatETA(seconds int64) string {
	if seconds < 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}
