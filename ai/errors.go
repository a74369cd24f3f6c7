package ai

import "errors"

var (
	// ErrConfigRequired is returned when a Distill call receives no config.
	ErrConfigRequired = errors.New("distiller config required")

	// ErrEmptyInput is returned when there is no raw text to distill.
	ErrEmptyInput = errors.New("nothing to distill: empty input")

	// ErrEmptyOutput is returned when the model produced no usable text.
	ErrEmptyOutput = errors.New("model returned empty output")

	// ErrUnknownProvider is returned when a Config names a provider kind
	// with no registered implementation.
	ErrUnknownProvider = errors.New("unknown provider kind")
)
