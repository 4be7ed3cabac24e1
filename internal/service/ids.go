package service

import (
	"time"

	"gate_control/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idLength   = 8
)

// NewCommandID returns a short id such as cmd-x3Kp9aQz.
func NewCommandID() string {
	id, err := gonanoid.Generate(idAlphabet, idLength)
	if err != nil {
		// crypto/rand failure; fall back to a time-derived id
		return models.CommandIDPrefix + time.Now().UTC().Format("150405.000000")
	}
	return models.CommandIDPrefix + id
}

// NewCommand builds a command ready for Submit.
func NewCommand(kind models.CommandKind, source models.Source) models.Command {
	return models.Command{
		ID:        NewCommandID(),
		Kind:      kind,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
