package entity

import "errors"

// Domain errors are terminal facts, not transient failures; they are returned
// to the caller verbatim and never retried inside the engine. Storage
// transport errors are everything else and stay retryable by the caller.
var (
	// ErrInvalidCode - no reward code matches the presented token.
	ErrInvalidCode = errors.New("invalid code")
	// ErrAlreadyRedeemed - the conditional redemption write matched zero rows,
	// or the code was already marked redeemed on read.
	ErrAlreadyRedeemed = errors.New("already redeemed")
	// ErrExpired - the code's expiry horizon passed before redemption.
	ErrExpired = errors.New("reward expired")
	// ErrProjectNotFound - the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectNotConfigured - the project exists but has no prize table.
	ErrProjectNotConfigured = errors.New("project has no prizes configured")
	// ErrInvalidPrizeTable - the prize table has no positive weight to draw from.
	ErrInvalidPrizeTable = errors.New("invalid prize table")
	// ErrBusinessProfileMissing - a redeemed reward cannot be presented
	// without the owning business profile; data-integrity error.
	ErrBusinessProfileMissing = errors.New("business profile missing")
)
