package domain

import "errors"

var (
	ErrSessionMissing      = errors.New("session missing")
	ErrRemoteService       = errors.New("remote service error")
	ErrLocalStore          = errors.New("local store error")
	ErrCollabDBUnavailable = errors.New("collab db unavailable")
	ErrTaskJoin            = errors.New("background task failed")
	ErrConversion          = errors.New("conversion error")
	ErrUnsupportedImport   = errors.New("unsupported import data")
	ErrProfileNotFound     = errors.New("user profile not found")
)
