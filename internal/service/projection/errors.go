package projection

import "errors"

// Sentinel errors for the projection layer. The *NotFound messages must
// keep the "not found" substring; Classify keys on it.
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrPieceNotFound    = errors.New("piece not found")
	ErrUnresolvedTenant = errors.New("tenant scope unresolved")
)
