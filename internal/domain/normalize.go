package domain

import "strings"

// Provider vocabularies differ wildly ("launching", "START", " In_Sequence ").
// The normalizers below are total: any input, including empty, maps to a value
// from the canonical enum. Matching is case- and whitespace-insensitive.

func canon(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

var campaignStatusTable = map[string]CampaignStatus{
	"drafted":     CampaignDrafted,
	"draft":       CampaignDrafted,
	"launching":   CampaignDrafted,
	"queued":      CampaignDrafted,
	"created":     CampaignDrafted,
	"active":      CampaignActive,
	"running":     CampaignActive,
	"started":     CampaignActive,
	"start":       CampaignActive,
	"in_progress": CampaignActive,
	"resumed":     CampaignActive,
	"paused":      CampaignPaused,
	"pause":       CampaignPaused,
	"on_hold":     CampaignPaused,
	"stopped":     CampaignStopped,
	"stop":        CampaignStopped,
	"canceled":    CampaignStopped,
	"cancelled":   CampaignStopped,
	"archived":    CampaignStopped,
	"completed":   CampaignCompleted,
	"complete":    CampaignCompleted,
	"finished":    CampaignCompleted,
	"done":        CampaignCompleted,
}

// NormalizeCampaignStatus maps a provider campaign status onto the canonical
// enum. Unknown or empty input defaults to DRAFTED.
func NormalizeCampaignStatus(raw string) CampaignStatus {
	if s, ok := campaignStatusTable[canon(raw)]; ok {
		return s
	}
	return CampaignDrafted
}

var leadStatusTable = map[string]LeadStatus{
	"active":            LeadActive,
	"verified":          LeadActive,
	"in_sequence":       LeadActive,
	"in_progress":       LeadActive,
	"started":           LeadActive,
	"contacted":         LeadContacted,
	"sequence_finished": LeadContacted,
	"finished":          LeadContacted,
	"completed":         LeadContacted,
	"replied":           LeadReplied,
	"responded":         LeadReplied,
	"reply":             LeadReplied,
	"interested":        LeadInterested,
	"positive":          LeadInterested,
	"not_interested":    LeadNotInterested,
	"negative":          LeadNotInterested,
	"bounced":           LeadBounced,
	"bounce":            LeadBounced,
	"hard_bounce":       LeadBounced,
	"invalid_email":     LeadBounced,
	"unsubscribed":      LeadUnsubscribed,
	"unsubscribe":       LeadUnsubscribed,
	"opted_out":         LeadUnsubscribed,
	"opt_out":           LeadUnsubscribed,
	"paused":            LeadPaused,
	"blocked":           LeadPaused,
	"pending":           LeadPending,
	"queued":            LeadPending,
	"new":               LeadPending,
	"created":           LeadPending,
}

// NormalizeLeadStatus maps a provider lead status onto the canonical enum.
// Unknown or empty input defaults to unknown.
func NormalizeLeadStatus(raw string) LeadStatus {
	if s, ok := leadStatusTable[canon(raw)]; ok {
		return s
	}
	return LeadUnknown
}

var directionTable = map[string]MessageDirection{
	"inbound":  DirectionInbound,
	"incoming": DirectionInbound,
	"received": DirectionInbound,
	"reply":    DirectionInbound,
	"replied":  DirectionInbound,
	"outbound": DirectionOutbound,
	"outgoing": DirectionOutbound,
	"sent":     DirectionOutbound,
}

// NormalizeMessageDirection maps a provider direction string onto
// inbound/outbound/unknown.
func NormalizeMessageDirection(raw string) MessageDirection {
	if d, ok := directionTable[canon(raw)]; ok {
		return d
	}
	return DirectionUnknown
}

// DirectionFromEventType infers a message direction from a webhook event
// type: names containing "reply" are inbound, names containing "message" or
// "sent" are outbound, anything else is unknown.
func DirectionFromEventType(eventType string) MessageDirection {
	t := canon(eventType)
	switch {
	case strings.Contains(t, "reply"):
		return DirectionInbound
	case strings.Contains(t, "message"), strings.Contains(t, "sent"):
		return DirectionOutbound
	default:
		return DirectionUnknown
	}
}

var pieceStatusTable = map[string]PieceStatus{
	"queued":                 PieceQueued,
	"created":                PieceQueued,
	"pending":                PieceQueued,
	"processing":             PieceProcessing,
	"processed":              PieceProcessing,
	"rendered":               PieceProcessing,
	"ready_for_mail":         PieceReadyForMail,
	"ready":                  PieceReadyForMail,
	"mailed":                 PieceReadyForMail,
	"processed_for_delivery": PieceReadyForMail,
	"in_transit":             PieceInTransit,
	"in_local_area":          PieceInTransit,
	"re-routed":              PieceInTransit,
	"rerouted":               PieceInTransit,
	"delivered":              PieceDelivered,
	"returned":               PieceReturned,
	"returned_to_sender":     PieceReturned,
	"canceled":               PieceCanceled,
	"cancelled":              PieceCanceled,
	"deleted":                PieceCanceled,
	"failed":                 PieceFailed,
	"failure":                PieceFailed,
}

// NormalizePieceStatus maps a provider piece status onto the canonical enum.
// Unknown or empty input defaults to unknown.
func NormalizePieceStatus(raw string) PieceStatus {
	if s, ok := pieceStatusTable[canon(raw)]; ok {
		return s
	}
	return PieceUnknown
}

var pieceEventStatusTable = map[string]PieceStatus{
	"piece.created":    PieceQueued,
	"piece.processed":  PieceProcessing,
	"piece.in_transit": PieceInTransit,
	"piece.delivered":  PieceDelivered,
	"piece.returned":   PieceReturned,
	"piece.canceled":   PieceCanceled,
	"piece.re-routed":  PieceInTransit,
	"piece.failed":     PieceFailed,
}

// PieceStatusForEventType maps a normalized direct-mail event type (the
// "piece.*" family) onto a piece status. The second return is false for
// event types that do not describe a piece transition.
func PieceStatusForEventType(eventType string) (PieceStatus, bool) {
	s, ok := pieceEventStatusTable[canon(eventType)]
	return s, ok
}
