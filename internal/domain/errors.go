// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the caller supplied malformed input.
var ErrValidation = errors.New("validation failed")

// ErrNoRoute indicates a document status has no stage mapped to it.
var ErrNoRoute = errors.New("no route for document status")

// ErrStageNotRegistered indicates the orchestrator has no stage with the requested id.
var ErrStageNotRegistered = errors.New("stage not registered")
