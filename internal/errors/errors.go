// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrEmptyResult     = errors.New("provider returned no records")
	ErrNoMapping       = errors.New("no asset mapping for code")
	ErrAssetMissing    = errors.New("local asset file missing")
	ErrBadStatus       = errors.New("unexpected response status")
	ErrMalformedRecord = errors.New("malformed calendar record")
	ErrLoopClosed      = errors.New("consumer loop closed")
	ErrTimeout         = errors.New("operation timed out")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDataNotFound    = errors.New("data not found")
	ErrDatabaseError   = errors.New("database error")
	ErrInputValidation = errors.New("input validation failed")
	ErrCircuitOpen     = errors.New("provider circuit open")
)

// CacheDecodeError reports a durable cache file that could not be read or decoded.
// It is logged and absorbed; the store starts empty.
type CacheDecodeError struct {
	Path string
	Err  error
}

func (e *CacheDecodeError) Error() string {
	return fmt.Sprintf("cache decode error [%s]: %v", e.Path, e.Err)
}

func (e *CacheDecodeError) Unwrap() error {
	return e.Err
}

// NewCacheDecodeError creates a new CacheDecodeError.
func NewCacheDecodeError(path string, err error) *CacheDecodeError {
	return &CacheDecodeError{Path: path, Err: err}
}

// CachePersistError reports a failed write of the durable cache file.
type CachePersistError struct {
	Path string
	Op   string
	Err  error
}

func (e *CachePersistError) Error() string {
	return fmt.Sprintf("cache persist error [%s] %s: %v", e.Path, e.Op, e.Err)
}

func (e *CachePersistError) Unwrap() error {
	return e.Err
}

// NewCachePersistError creates a new CachePersistError.
func NewCachePersistError(path, op string, err error) *CachePersistError {
	return &CachePersistError{Path: path, Op: op, Err: err}
}

// FetchError represents a failed provider call or a malformed provider response.
type FetchError struct {
	From string
	To   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error [%s - %s]: %v", e.From, e.To, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(from, to string, err error) *FetchError {
	return &FetchError{From: from, To: to, Err: err}
}

// AssetError represents a failed flag asset resolution.
type AssetError struct {
	Code   string
	Reason string
	Err    error
}

func (e *AssetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset error [%s]: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("asset error [%s]: %s", e.Code, e.Reason)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// NewAssetError creates a new AssetError.
func NewAssetError(code, reason string, err error) *AssetError {
	return &AssetError{Code: code, Reason: reason, Err: err}
}

// RangeParseError reports a record whose date could not be parsed during a range query.
type RangeParseError struct {
	ID    string
	Value string
	Err   error
}

func (e *RangeParseError) Error() string {
	return fmt.Sprintf("range parse error [%s] %q: %v", e.ID, e.Value, e.Err)
}

func (e *RangeParseError) Unwrap() error {
	return e.Err
}

// NewRangeParseError creates a new RangeParseError.
func NewRangeParseError(id, value string, err error) *RangeParseError {
	return &RangeParseError{ID: id, Value: value, Err: err}
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

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
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

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
