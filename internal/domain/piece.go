package domain

import "time"

// PieceType enumerates the direct-mail formats a provider can produce.
type PieceType string

const (
	PiecePostcard   PieceType = "postcard"
	PieceLetter     PieceType = "letter"
	PieceSelfMailer PieceType = "self_mailer"
	PieceCheck      PieceType = "check"
)

// PieceStatus enumerates the normalized delivery states of a mail piece.
type PieceStatus string

const (
	PieceQueued       PieceStatus = "queued"
	PieceProcessing   PieceStatus = "processing"
	PieceReadyForMail PieceStatus = "ready_for_mail"
	PieceInTransit    PieceStatus = "in_transit"
	PieceDelivered    PieceStatus = "delivered"
	PieceReturned     PieceStatus = "returned"
	PieceCanceled     PieceStatus = "canceled"
	PieceFailed       PieceStatus = "failed"
	PieceUnknown      PieceStatus = "unknown"
)

// DirectMailPiece is the local projection of a provider mail piece.
type DirectMailPiece struct {
	ID              string         `json:"id" db:"id"`
	OrgID           string         `json:"org_id" db:"org_id"`
	CompanyID       string         `json:"company_id" db:"company_id"`
	ProviderID      string         `json:"provider_id" db:"provider_id"`
	ExternalPieceID string         `json:"external_piece_id" db:"external_piece_id"`
	PieceType       PieceType      `json:"piece_type" db:"piece_type"`
	Status          PieceStatus    `json:"status" db:"status"`
	SendDate        *time.Time     `json:"send_date,omitempty" db:"send_date"`
	Metadata        map[string]any `json:"metadata,omitempty" db:"metadata"`
	RawPayload      map[string]any `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}
