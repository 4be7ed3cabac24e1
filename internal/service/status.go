package service

import (
	"fmt"
	"time"

	"gate_control/internal/models"
)

// statusText is the one-line status shown on the panel and in the app.
func statusText(cmd models.Command, res models.Result, autoClose models.TimeOfDay, momentary time.Duration) string {
	if cmd.Source == models.SourceTimer {
		switch {
		case cmd.Trigger == models.TriggerMomentary && res.OK:
			return "Gate closed (momentary)"
		case cmd.Trigger == models.TriggerMomentary:
			return "Failed to auto-close!"
		case res.OK:
			return fmt.Sprintf("Scheduled close (%s)", autoClose)
		default:
			return "Scheduled close failed!"
		}
	}

	switch cmd.Kind {
	case models.CommandOpen:
		if res.OK {
			return "Opening gate..."
		}
		return "Failed to send open"
	case models.CommandClose:
		if res.OK {
			return "Closing gate..."
		}
		return "Failed to send close"
	case models.CommandStatus:
		if res.OK {
			return "Checking status..."
		}
		return "Failed to check status"
	case models.CommandMomentary:
		if res.OK {
			return fmt.Sprintf("Momentary - closing in %ds", int(momentary/time.Second))
		}
		return "Failed to send open"
	}
	return string(cmd.Kind)
}
