package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while scoring a batch.
var (
	// ErrLengthMismatch indicates that a reward component does not have one
	// value per completion.
	ErrLengthMismatch = errors.New("reward length mismatch")

	// ErrUnknownRound indicates that a round name is not supported.
	ErrUnknownRound = errors.New("unknown round")

	// ErrUnknownSelector indicates that an output selector is not supported.
	ErrUnknownSelector = errors.New("unknown output selector")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrScorerPanic indicates that a scorer panicked and was recovered.
	ErrScorerPanic = errors.New("scorer panicked")
)

// ScoringError reports which reward component failed for a batch.
type ScoringError struct {
	// Component is the name of the failing reward component.
	Component string

	// Round is the round being scored.
	Round Round

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ScoringError.
func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring error: round=%s, component=%s, err=%v", e.Round, e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScoringError) Unwrap() error { return e.Err }

// NewScoringError creates a new ScoringError with the given details.
func NewScoringError(round Round, component string, err error) *ScoringError {
	return &ScoringError{
		Component: component,
		Round:     round,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match validation failures as invalid configuration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
