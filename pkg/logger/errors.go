package logger

import "errors"

var (
	ErrInvalidLevel    = errors.New("logger: invalid level")
	ErrNoOutput        = errors.New("logger: no output enabled")
	ErrEmptyOutputPath = errors.New("logger: output path is empty")
)
