package db

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel failures returned by the repositories. Handlers translate these
// into transport-level responses; everything else is an internal failure.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrBoardNotFound  = errors.New("board not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrAuthorNotFound = errors.New("author not found")
	ErrLoginTaken     = errors.New("login already exists")
)

// UsersNotFoundError reports which member identifiers could not be resolved
// when creating a board.
type UsersNotFoundError struct {
	Missing []string
}

func (e *UsersNotFoundError) Error() string {
	return fmt.Sprintf("users not found: %s", strings.Join(e.Missing, ", "))
}
