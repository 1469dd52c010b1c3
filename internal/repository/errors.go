// Package repository provides data access over MySQL for the durable
// entities of the reservation engine.  Sentinel errors defined here
// let handlers distinguish failure scenarios without inspecting
// driver-specific error strings.
package repository

import "errors"

// ErrResourceNotFound is returned when a resource id does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// ErrBookingNotFound is returned when a booking lookup matches nothing.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateTransaction is returned when inserting a booking whose
// transaction id (or reference) already exists.  The unique index on
// bookings.transaction_id is the storage-level idempotency net; this
// error tells the finalizer to load and return the existing booking.
var ErrDuplicateTransaction = errors.New("booking already exists for transaction")

// ErrEmailExists is returned when registering a user with an email
// that is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// record they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")
