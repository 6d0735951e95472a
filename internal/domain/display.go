package domain

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ViewsUnavailable is shown when the view count is unknown or zero.
const ViewsUnavailable = "N/A"

// FormatDuration renders whole seconds as "m:ss". Minutes accumulate past 59.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatViews renders a view count with thousands separators.
// Upstream data does not distinguish zero from unknown, so both render as N/A.
func FormatViews(count int64) string {
	if count <= 0 {
		return ViewsUnavailable
	}
	return humanize.Comma(count)
}
