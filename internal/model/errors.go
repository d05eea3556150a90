package model

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrDuplicateCharacter = errors.New("character already exists")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthorized       = errors.New("no account or account has been banned")
	ErrTokenNotFound      = errors.New("token not found")
)
