package models

import "errors"

// Domain errors that can be returned by repositories
var (
	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction indicates a ledger entry with the same
	// idempotency key and direction already exists
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrSlotTaken indicates a confirmed appointment already exists at the
	// same (tenant, scheduled_at) slot
	ErrSlotTaken = errors.New("slot already booked")

	// ErrDuplicateEvent indicates a webhook event with the same external
	// event ID was already enqueued
	ErrDuplicateEvent = errors.New("duplicate webhook event")
)
