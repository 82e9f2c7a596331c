package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/glebk/study-bot/internal/session"
)

const defaultPomodoroCycles = 4

func number(v float64) *float64 { return &v }

// commandDefinitions is the slash-command surface registered on startup.
var commandDefinitions = []*discordgo.ApplicationCommand{
	{
		Name:        "setup_study",
		Description: "Create or restore the shared study voice channel",
	},
	{
		Name:        "start_study",
		Description: "Start a focused study session",
	},
	{
		Name:        "join_study",
		Description: "Get moved into the shared study voice room",
	},
	{
		Name:        "end_study",
		Description: "End the active study session",
	},
	{
		Name:        "pomodoro_start",
		Description: "Run Pomodoro focus/break cycles in the study room",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "work_minutes",
				Description: "Focus minutes per cycle",
				Required:    true,
				MinValue:    number(5),
				MaxValue:    120,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "break_minutes",
				Description: "Break minutes between cycles",
				Required:    true,
				MinValue:    number(1),
				MaxValue:    60,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "cycles",
				Description: "Number of focus cycles",
				MinValue:    number(1),
				MaxValue:    12,
			},
		},
	},
	{
		Name:        "pomodoro_stop",
		Description: "Stop the current Pomodoro and end study session",
	},
	{
		Name:        "leaderboard",
		Description: "Top total study times in this server",
	},
	{
		Name:        "weekly_leaderboard",
		Description: "Top study times for the current week",
	},
	{
		Name:        "weekly_reset",
		Description: "Reset this server's weekly leaderboard for the current week",
	},
	{
		Name:        "my_study_time",
		Description: "Show your total study time",
	},
}

// parsePomodoroOptions extracts a cycle plan from the interaction
// options. Range limits are enforced by the command definition.
func parsePomodoroOptions(data discordgo.ApplicationCommandInteractionData) session.PomodoroConfig {
	cfg := session.PomodoroConfig{Cycles: defaultPomodoroCycles}

	for _, opt := range data.Options {
		switch opt.Name {
		case "work_minutes":
			cfg.WorkMinutes = int(opt.IntValue())
		case "break_minutes":
			cfg.BreakMinutes = int(opt.IntValue())
		case "cycles":
			cfg.Cycles = int(opt.IntValue())
		}
	}

	return cfg
}
