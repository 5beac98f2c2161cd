package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"mangawatch/internal/microservices/http-api/dto"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
)

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// statusText colors a reading status or a publication status.
func statusText(status string) string {
	switch strings.ToLower(status) {
	case "reading", "ongoing":
		return color.CyanString(status)
	case "completed":
		return color.GreenString(status)
	case "plan to read":
		return color.YellowString(status)
	case "hiatus":
		return color.MagentaString(status)
	case "cancelled":
		return color.RedString(status)
	default:
		return color.HiBlackString(status)
	}
}

func successText(format string, args ...any) string {
	return color.GreenString("✓ "+format, args...)
}

func errorText(msg string) string {
	return color.RedString("✗ " + msg)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func ratingText(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

func yearText(y *int) string {
	if y == nil {
		return "-"
	}
	return strconv.Itoa(*y)
}

func mangaRows(list []dto.MangaResponse) [][]string {
	rows := make([][]string, 0, len(list))
	for _, m := range list {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			truncate(m.Title, 40),
			truncate(m.Author, 24),
			yearText(m.ReleaseYear),
			statusText(m.Status),
			ratingText(m.Rating),
		})
	}
	return rows
}

func libraryRows(entries []dto.LibraryEntryResponse) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		title := "-"
		if e.Manga != nil {
			title = truncate(e.Manga.Title, 40)
		}
		rating := "-"
		if e.Rating != nil {
			rating = fmt.Sprintf("%d/10", *e.Rating)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.MangaID, 10),
			title,
			statusText(e.ReadingStatus),
			rating,
			e.AddedAt.Format("2006-01-02"),
		})
	}
	return rows
}

func renderManga(m *dto.MangaResponse) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString("\n")
	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	field("ID", strconv.FormatInt(m.ID, 10))
	if m.DexID != nil {
		field("MangaDex", *m.DexID)
	}
	field("Author", m.Author)
	field("Year", yearText(m.ReleaseYear))
	field("Status", statusText(m.Status))
	field("Rating", ratingText(m.Rating))
	field("Genres", strings.Join(m.Genres, ", "))
	field("Also known", strings.Join(m.AltTitles, " / "))
	field("Cover", m.CoverURL)
	if m.Description != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Width(80).Render(m.Description) + "\n")
	}
	return b.String()
}
