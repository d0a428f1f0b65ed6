package outreach

import (
	"context"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/scope"
)

// ListMessagesInput bounds a local message listing within one campaign.
type ListMessagesInput struct {
	CompanyID  string
	CampaignID string
	Direction  string
	Limit      int
	Offset     int
}

// ListMessages serves from the local projection tables. Messages arrive via
// webhooks or reconciliation; no provider supports sending through this
// surface, so the message API is read-only.
func (s *Service) ListMessages(ctx context.Context, auth scope.AuthContext, in ListMessagesInput) ([]domain.CampaignMessage, int, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, true)
	if err != nil {
		return nil, 0, err
	}
	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := clampPage(in.Limit, in.Offset)
	return s.stores.Messages.List(ctx, MessageFilter{
		OrgID:      sc.OrgID,
		CampaignID: c.ID,
		Direction:  in.Direction,
		Limit:      limit,
		Offset:     offset,
	})
}
