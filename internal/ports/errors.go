package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur at collaborator boundaries.
var (
	// ErrPublishFailed indicates that a node update could not be delivered.
	ErrPublishFailed = errors.New("publish failed")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnsupportedComponent indicates that no factory is registered for a
	// reward component name.
	ErrUnsupportedComponent = errors.New("unsupported reward component")
)

// PublishError represents a failure to deliver a node update.
type PublishError struct {
	// NodeKey identifies the node whose update failed.
	NodeKey string

	// Subject is the transport destination, if any.
	Subject string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for PublishError.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error: node=%s, subject=%s, err=%v", e.NodeKey, e.Subject, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error { return e.Err }

// Is reports every PublishError as ErrPublishFailed.
func (e *PublishError) Is(target error) bool { return target == ErrPublishFailed }

// NewPublishError creates a new PublishError with the given details.
func NewPublishError(nodeKey, subject string, err error) *PublishError {
	return &PublishError{
		NodeKey: nodeKey,
		Subject: subject,
		Err:     err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
