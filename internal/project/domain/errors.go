package domain

import (
	"github.com/allisson/envie/internal/errors"
)

var (
	// ErrProjectNotFound indicates the project does not exist.
	ErrProjectNotFound = errors.Wrap(errors.ErrNotFound, "project not found")

	// ErrConfigItemNotFound indicates the config item does not exist.
	ErrConfigItemNotFound = errors.Wrap(errors.ErrNotFound, "config item not found")

	// ErrFileNotFound indicates the project file does not exist.
	ErrFileNotFound = errors.Wrap(errors.ErrNotFound, "project file not found")

	// ErrTeamNotFound indicates the team does not exist.
	ErrTeamNotFound = errors.Wrap(errors.ErrNotFound, "team not found")
)
