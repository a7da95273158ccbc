package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/ui/theme"
)

const bannerArt = `
 ██████╗ ██████╗ ███████╗██████╗  ██████╗ ██╗   ██╗██╗███████╗
 ██╔══██╗██╔══██╗██╔════╝██╔══██╗██╔═══██╗██║   ██║██║╚══███╔╝
 ██████╔╝██████╔╝█████╗  ██████╔╝██║   ██║██║   ██║██║  ███╔╝
 ██╔═══╝ ██╔══██╗██╔══╝  ██╔═══╝ ██║▄▄ ██║██║   ██║██║ ███╔╝
 ██║     ██║  ██║███████╗██║     ╚██████╔╝╚██████╔╝██║███████╗
 ╚═╝     ╚═╝  ╚═╝╚══════╝╚═╝      ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝`

const bannerCompact = "P R E P Q U I Z"

// RenderBanner returns the banner in the primary color, falling back to
// a compact form below 66 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 66 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
