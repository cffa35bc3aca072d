package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Color definitions for CLI output
var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 2)

func styleError(msg string) string {
	return red("✗ " + msg)
}

func styleStatus(msg string) string {
	return blue(msg)
}

func styleHint(msg string) string {
	return gray(msg)
}

func styleSuccess(msg string) string {
	return green("✓ " + msg)
}

func renderBanner(title, subtitle string) string {
	content := bold(title)
	if subtitle != "" {
		content += "\n" + gray(subtitle)
	}
	return bannerStyle.Render(content)
}
