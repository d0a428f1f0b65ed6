package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/scope"
)

const defaultInboxSyncLimit = 100

// SyncInboxesInput pulls the company's sender accounts from its email
// provider.
type SyncInboxesInput struct {
	CompanyID string
	Limit     int
}

// SyncInboxes lists the provider's sender inboxes and upserts the local
// rows. Returns how many were synced.
func (s *Service) SyncInboxes(ctx context.Context, auth scope.AuthContext, in SyncInboxesInput) (int, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return 0, err
	}
	ent, creds, err := s.tenant(ctx, sc, domain.CapabilityEmailOutreach)
	if err != nil {
		return 0, err
	}
	seq, ok := s.providers.EmailSequencer(ent.ProviderSlug, creds)
	if !ok {
		return 0, &NotImplementedError{Capability: domain.CapabilityEmailOutreach, Provider: ent.ProviderSlug}
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultInboxSyncLimit
	}
	s.dispatched(ent.ProviderSlug, "list_inboxes")
	inboxes, err := seq.ListInboxes(ctx, limit)
	if err != nil {
		return 0, s.providerFailure(ent.ProviderSlug, "list_inboxes", err)
	}

	now := time.Now().UTC()
	for i := range inboxes {
		pi := &inboxes[i]
		row := &domain.Inbox{
			OrgID:             sc.OrgID,
			CompanyID:         *sc.CompanyID,
			ProviderID:        ent.ProviderID,
			ExternalAccountID: pi.ExternalID,
			Email:             pi.Email,
			Status:            pi.Status,
			WarmupEnabled:     pi.WarmupEnabled,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.stores.Inboxes.Upsert(ctx, row); err != nil {
			return 0, fmt.Errorf("persist inbox %s: %w", pi.ExternalID, err)
		}
	}
	logger.Info("inboxes.synced", "provider", ent.ProviderSlug, "company_id", *sc.CompanyID, "count", len(inboxes))
	return len(inboxes), nil
}

// SetWarmupInput toggles warmup for one sender inbox.
type SetWarmupInput struct {
	CompanyID string
	InboxID   string
	Enabled   bool
}

// SetWarmup dispatches the toggle to the provider owning the inbox, then
// converges the local row.
func (s *Service) SetWarmup(ctx context.Context, auth scope.AuthContext, in SetWarmupInput) (*domain.Inbox, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return nil, err
	}
	inbox, err := s.stores.Inboxes.Get(ctx, sc.OrgID, in.InboxID)
	if err != nil {
		return nil, err
	}
	if sc.CompanyID != nil && inbox.CompanyID != *sc.CompanyID {
		return nil, ErrInboxNotFound
	}

	slug := domain.SlugForProviderID(inbox.ProviderID)
	creds, err := s.credentials(ctx, sc.OrgID, slug)
	if err != nil {
		return nil, err
	}
	seq, ok := s.providers.EmailSequencer(slug, creds)
	if !ok {
		return nil, &NotImplementedError{Capability: domain.CapabilityEmailOutreach, Provider: slug}
	}

	s.dispatched(slug, "set_warmup")
	if err := seq.SetWarmup(ctx, inbox.ExternalAccountID, in.Enabled); err != nil {
		return nil, s.providerFailure(slug, "set_warmup", err)
	}

	inbox.WarmupEnabled = in.Enabled
	inbox.UpdatedAt = time.Now().UTC()
	if err := s.stores.Inboxes.Upsert(ctx, inbox); err != nil {
		return nil, fmt.Errorf("persist inbox: %w", err)
	}
	logger.Info("inbox.warmup_set", "provider", slug, "inbox_id", inbox.ID, "enabled", in.Enabled)
	return inbox, nil
}
