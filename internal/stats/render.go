package stats

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Width(10)
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("254")).
			Align(lipgloss.Right).
			Width(10)
)

// Render formats the summary as a bordered terminal panel.
func Render(s Summary) string {
	title := "Minimum sphere diameter (mm)"
	if s.WeightByRank {
		title += ", weighted by rank"
	}

	lines := []string{
		titleStyle.Render(title),
		"",
		line("n", fmt.Sprintf("%d", s.N)),
		line("Mean", fmt.Sprintf("%.2f", s.Mean)),
		line("SD", fmt.Sprintf("%.2f", s.StdDev)),
		line("Median", fmt.Sprintf("%.2f", s.Median)),
		line("Min", fmt.Sprintf("%.2f", s.Min)),
		line("Max", fmt.Sprintf("%.2f", s.Max)),
		"",
		titleStyle.Render("Percentiles (weighted)"),
	}
	for _, p := range s.Percentiles {
		lines = append(lines, line(fmt.Sprintf("%dth", p.P), fmt.Sprintf("%.2f", p.Value)))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func line(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// MarshalYAML renders the summary as a YAML document.
func MarshalYAML(s Summary) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	return b.String(), nil
}
