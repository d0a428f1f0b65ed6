package ingest

import "errors"

// Sentinel errors for the ingest service layer.
var (
	ErrDuplicateEvent  = errors.New("webhook event already exists")
	ErrEventNotFound   = errors.New("webhook event not found")
	ErrUnknownProvider = errors.New("unknown webhook provider")
)
