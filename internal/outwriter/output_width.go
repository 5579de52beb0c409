package outwriter

import (
	"os"

	"github.com/huangsam/casetrend/internal/contract"
	"golang.org/x/term"
)

// GetMaxRegionWidth calculates the maximum width for region labels in table output
// based on terminal width and the widest fixed column set (the trend table).
func GetMaxRegionWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Rate + Doubling + Growth + Last + Projected + Projected At with borders/padding
	baseWidth := 80

	available := termWidth - baseWidth
	if available < 12 {
		return 12
	}
	if available > 40 {
		return 40
	}
	return available
}
