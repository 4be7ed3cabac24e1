package service

import "time"

// LogFilter narrows the activity-log view. Every field is optional.
type LogFilter struct {
	From    time.Time // inclusive
	To      time.Time // inclusive
	Source  string    // "", TOUCH, CLOUD, TIMER
	Command string    // "", OPEN, CLOSE, STATUS, MOMENTARY
	Limit   int       // 0 means defaultLogLimit
}

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)
