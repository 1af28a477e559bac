package domain

import "errors"

var (
	ErrConferenceNotFound = errors.New("conference not found")
	ErrConferenceFull     = errors.New("conference full")
	ErrNotCreator         = errors.New("only the creator may close a conference")
	ErrRequestTimeout     = errors.New("request timed out")
)
