package discord

import (
	"fmt"
	"strings"

	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/session"
)

// renderLeaderboard formats ranked study totals, one line per user.
// The resolver turns user ids into display names.
func renderLeaderboard(entries []domain.LeaderboardEntry, resolve func(userID string) string, header string) string {
	var sb strings.Builder

	if header != "" {
		sb.WriteString(header)
		sb.WriteByte('\n')
	}

	for rank, entry := range entries {
		fmt.Fprintf(&sb, "%d. %s - %s\n",
			rank+1, resolve(entry.UserID), session.FormatDuration(entry.TotalSeconds))
	}

	return strings.TrimRight(sb.String(), "\n")
}
