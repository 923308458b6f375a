package models

import (
	"fmt"
	"strings"
)

// ModelError is a custom error type for invariant violations on plain models
type ModelError string

// Error implements the error interface
func (e ModelError) Error() string {
	return string(e)
}

const (
	ErrInvalidDefinition ModelError = "invalid game definition"
	ErrInvalidTransition ModelError = "invalid status transition"
)

// DefinitionError lists every field of a game definition that failed validation
type DefinitionError struct {
	Fields map[string]string
}

func (e *DefinitionError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range sortedKeys(e.Fields) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}

	return fmt.Sprintf("%s: %s", ErrInvalidDefinition, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrInvalidDefinition) match
func (e *DefinitionError) Is(target error) bool {
	return target == ErrInvalidDefinition
}

func (e *DefinitionError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// TransitionError is returned when a session cannot move between two statuses
type TransitionError struct {
	From SessionStatus
	To   SessionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

// Is lets errors.Is(err, ErrInvalidTransition) match
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
