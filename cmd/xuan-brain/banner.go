package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerDimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	bannerInkStyle     = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	bannerWashStyle    = lipgloss.NewStyle().Foreground(colorPrimaryLight)
	bannerTitleStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	bannerTaglineStyle = lipgloss.NewStyle().Foreground(colorPrimaryDark).Italic(true)
	bannerVersionStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// renderBanner draws a stack of pages with the product name on the spine.
func renderBanner() string {
	edge := bannerDimStyle.Render("│")
	ink := bannerInkStyle.Render("▌")
	wash := bannerWashStyle.Render("░░░░░░░░░░░░░░")
	title := bannerTitleStyle.Render("XUAN BRAIN")

	lines := []string{
		"    " + bannerDimStyle.Render("┌────────────────┐"),
		"    " + edge + ink + wash + " " + edge,
		"    " + edge + ink + "   " + title + " " + edge,
		"    " + edge + ink + wash + " " + edge,
		"    " + bannerDimStyle.Render("└────────────────┘"),
	}

	return strings.Join(lines, "\n")
}

func renderBannerWithTagline() string {
	tagline := bannerTaglineStyle.Render("      papers, kept in place")
	ver := bannerVersionStyle.Render("      " + version)

	return strings.Join([]string{renderBanner(), tagline, ver}, "\n")
}
