package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/domain/notification"
	"github.com/bryanwahyu/aishield/internal/presenter"
)

const barWidth = 20

var (
	severityColors = map[presenter.Severity]lipgloss.Color{
		presenter.SeveritySafe:    lipgloss.Color("#22c55e"),
		presenter.SeverityWarning: lipgloss.Color("#f59e0b"),
		presenter.SeverityDanger:  lipgloss.Color("#ef4444"),
	}
	iconGlyphs = map[presenter.Icon]string{
		presenter.IconAffirmative: "✔",
		presenter.IconCaution:     "⚠",
		presenter.IconDanger:      "✖",
	}
	notificationColors = map[notification.Kind]lipgloss.Color{
		notification.KindSuccess: lipgloss.Color("#22c55e"),
		notification.KindWarning: lipgloss.Color("#f59e0b"),
		notification.KindDanger:  lipgloss.Color("#ef4444"),
		notification.KindError:   lipgloss.Color("#ef4444"),
	}
)

type renderer struct {
	w     io.Writer
	plain bool
}

func newRenderer(w io.Writer, plain bool) *renderer {
	return &renderer{w: w, plain: plain}
}

func (r *renderer) style(c lipgloss.Color) lipgloss.Style {
	if r.plain {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}

func (r *renderer) heading(s string) string {
	if r.plain {
		return s
	}
	return lipgloss.NewStyle().Bold(true).Render(s)
}

func (r *renderer) Notification(ev notification.Event) {
	fmt.Fprintf(r.w, "%s %s\n", r.style(notificationColors[ev.Kind]).Render("["+string(ev.Kind)+"]"), ev.Message)
}

func (r *renderer) Error(e *domain.Error) {
	fmt.Fprintln(r.w, r.style(notificationColors[notification.KindError]).Render("✖ "+e.Message))
}

func (r *renderer) Descriptor(d presenter.Descriptor) {
	tone := r.style(severityColors[d.Tier.Severity])

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, tone.Bold(!r.plain).Render(iconGlyphs[d.Tier.Icon]+" "+d.Tier.Title))
	fmt.Fprintln(r.w, d.Tier.Description)
	fmt.Fprintf(r.w, "Confidence %s %d%%\n", tone.Render(bar(d.Confidence.Fill)), d.Confidence.Value)

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.heading(presenter.TitleSummary))
	fmt.Fprintln(r.w, d.Summary)

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.heading(presenter.TitleExplanation))
	fmt.Fprintln(r.w, d.Explanation)

	r.section(d.RedFlags, "•")
	r.section(d.Tips, "-")

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.style(lipgloss.Color("#6b7280")).Render(d.Disclaimer))
}

func (r *renderer) section(s *presenter.Section, bullet string) {
	if s == nil {
		return
	}
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.heading(s.Title))
	for _, item := range s.Items {
		fmt.Fprintf(r.w, "  %s %s\n", bullet, item)
	}
}

// bar draws a fixed-width meter for a fill already clamped to [0,100].
func bar(fill int) string {
	n := fill * barWidth / 100
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}
