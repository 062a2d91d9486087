// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrAllSourcesExhausted = errors.New("all data sources exhausted")
	ErrNoProvidersEnabled  = errors.New("no data providers enabled")
	ErrNoAgentsAvailable   = errors.New("no agents produced a verdict")
	ErrNotEligible         = errors.New("recommendation not yet eligible for evaluation")
	ErrAlreadyScored       = errors.New("recommendation already scored")
	ErrNoChannelsEnabled   = errors.New("no notification channels enabled")
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrDataNotFound        = errors.New("data not found")
	ErrDatabaseError       = errors.New("database error")
	ErrTimeout             = errors.New("operation timed out")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrCircuitOpen         = errors.New("provider circuit open")
)

// ProviderError represents a failure of one data provider for one request.
type ProviderError struct {
	Provider string
	Symbol   string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s] %s (%d attempts): %v", e.Provider, e.Symbol, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, symbol string, attempts int, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Symbol:   symbol,
		Attempts: attempts,
		Err:      err,
	}
}

// AgentError represents an error from an analysis agent.
type AgentError struct {
	Role      string
	Operation string
	Err       error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent error [%s] %s: %v", e.Role, e.Operation, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError.
func NewAgentError(role, operation string, err error) *AgentError {
	return &AgentError{
		Role:      role,
		Operation: operation,
		Err:       err,
	}
}

// DeliveryError represents a terminal notification delivery failure on a
// single channel. Other channels are unaffected.
type DeliveryError struct {
	Channel   string
	MessageID string
	Attempts  int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error [%s] message %s after %d attempts: %v", e.Channel, e.MessageID, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(channel, messageID string, attempts int, err error) *DeliveryError {
	return &DeliveryError{
		Channel:   channel,
		MessageID: messageID,
		Attempts:  attempts,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error outside any single provider.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
