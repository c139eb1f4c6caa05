package dwnstore

import "errors"

// Sentinel errors mirror the teacher's massifs/storage/errors.go flat
// var-block style: one var per condition, no structured payload. Handlers
// wrap them with dwnerrors.Wrap(KindStoreFailure, ...) or treat a not-found
// as a domain-level NotFound; Engine.TailMessage is the one caller that
// returns ErrNotFound unwrapped.
var (
	ErrNotFound       = errors.New("object does not exist")
	ErrCursorInvalid  = errors.New("the supplied event log cursor is not recognized")
	ErrBlobNotFound   = errors.New("data blob does not exist")
	ErrOpConfigMissing = errors.New("required configuration missing for the selected operation")
)
