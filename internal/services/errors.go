// Package services defines the business logic for the email gate, the
// translate flow and shared results. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Auth errors.
var (
	// ErrEmailNotAllowed is returned when the address is malformed or its
	// domain is not on the allow-list. The limiter is not consulted.
	ErrEmailNotAllowed = errors.New("email domain not allowed")
)

// Translate errors.
var (
	// ErrInvalidInput is returned when a required field is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuotaExceeded is returned when the provider reports quota, billing
	// or rate-limit exhaustion.
	ErrQuotaExceeded = errors.New("generation quota exceeded")

	// ErrSafetyBlocked is returned when the provider's safety filter tripped.
	ErrSafetyBlocked = errors.New("content blocked by safety filter")

	// ErrGenerationFailed wraps every other blocked generation. The wrapped
	// message carries the provider or transport reason.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmptyResult is returned when the provider answered without text.
	ErrEmptyResult = errors.New("generation returned no text")
)

// Result errors.
var (
	// ErrMissingText is returned when a save request lacks either text.
	ErrMissingText = errors.New("originalText and translatedText are required")

	// ErrResultNotFound covers both never-existed and expired results.
	ErrResultNotFound = errors.New("result not found")

	// ErrResultStore is returned when neither tier could store the result.
	ErrResultStore = errors.New("result could not be stored")
)
