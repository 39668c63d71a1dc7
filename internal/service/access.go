package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/products"
	"gpsr/internal/notifications"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// IncomingRequest is an access request enriched for display to the owner.
type IncomingRequest struct {
	ID            uuid.UUID                  `json:"id"`
	RequesterID   uuid.UUID                  `json:"requester_id"`
	RequesterName string                     `json:"requester_name"`
	ResourceType  accesscontrol.ResourceType `json:"resource_type"`
	ResourceID    uuid.UUID                  `json:"resource_id"`
	ResourceName  string                     `json:"resource_name"`
	Status        accesscontrol.Status       `json:"status"`
	Message       *string                    `json:"message"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// OutgoingRequest is one of the caller's own requests.
type OutgoingRequest struct {
	ID           uuid.UUID                  `json:"id"`
	OwnerID      uuid.UUID                  `json:"owner_id"`
	OwnerName    string                     `json:"owner_name"`
	ResourceType accesscontrol.ResourceType `json:"resource_type"`
	ResourceID   uuid.UUID                  `json:"resource_id"`
	ResourceName string                     `json:"resource_name"`
	Status       accesscontrol.Status       `json:"status"`
	Message      *string                    `json:"message"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

type resourceKey struct {
	rt accesscontrol.ResourceType
	id uuid.UUID
}

// resourceOwner loads the owner and display name of a shareable resource.
func (s *Service) resourceOwner(ctx context.Context, rt accesscontrol.ResourceType, id uuid.UUID) (uuid.UUID, string, error) {
	switch rt {
	case accesscontrol.ResourceCategory:
		c, err := s.store.Categories.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, categories.ErrCategoryNotFound) {
				return uuid.Nil, "", fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return uuid.Nil, "", err
		}
		return c.OwnerID, c.Name, nil
	case accesscontrol.ResourceProduct:
		p, err := s.store.Products.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, products.ErrProductNotFound) {
				return uuid.Nil, "", fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return uuid.Nil, "", err
		}
		return p.OwnerID, p.Title(), nil
	default:
		return uuid.Nil, "", fmt.Errorf("%w: unknown resource type %q", ErrValidation, rt)
	}
}

// resourceName never fails on a missing row; it falls back to UnknownResource.
func (s *Service) resourceName(ctx context.Context, rt accesscontrol.ResourceType, id uuid.UUID) (string, error) {
	_, name, err := s.resourceOwner(ctx, rt, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
			return UnknownResource, nil
		}
		return "", err
	}
	if name == "" {
		return UnknownResource, nil
	}
	return name, nil
}

// resourceNames resolves every distinct resource concurrently.
func (s *Service) resourceNames(ctx context.Context, keys []resourceKey) (map[resourceKey]string, error) {
	distinct := make([]resourceKey, 0, len(keys))
	seen := make(map[resourceKey]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			distinct = append(distinct, k)
		}
	}

	resolved := make([]string, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	if s.EnrichConcurrency > 0 {
		g.SetLimit(s.EnrichConcurrency)
	}
	for i, k := range distinct {
		g.Go(func() error {
			name, err := s.resourceName(gctx, k.rt, k.id)
			if err != nil {
				return fmt.Errorf("resolve %s %s: %w", k.rt, k.id, err)
			}
			resolved[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[resourceKey]string, len(distinct))
	for i, k := range distinct {
		out[k] = resolved[i]
	}
	return out, nil
}

func (s *Service) userNames(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]string {
	names, err := s.names.Names(ctx, ids)
	if err != nil {
		s.logger.Warnw("display name lookup failed, using fallback", "error", err)
	}
	return names
}

func defaultMessage(rt accesscontrol.ResourceType) string {
	return fmt.Sprintf("Please grant me access to this %s", rt)
}

// RequestAccess files a pending request from caller to the resource owner.
// ownerID may be uuid.Nil, in which case the stored owner is used; when set
// it must match the stored owner.
func (s *Service) RequestAccess(
	ctx context.Context,
	caller uuid.UUID,
	rt accesscontrol.ResourceType,
	resourceID, ownerID uuid.UUID,
	message string,
) (*accesscontrol.AccessRequest, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !rt.Valid() {
		return nil, fmt.Errorf("%w: unknown resource type %q", ErrValidation, rt)
	}

	trueOwner, resourceName, err := s.resourceOwner(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}
	if ownerID != uuid.Nil && ownerID != trueOwner {
		return nil, fmt.Errorf("%w: owner does not match %s", ErrValidation, rt)
	}
	if trueOwner == caller {
		return nil, fmt.Errorf("%w: you already own this %s", ErrValidation, rt)
	}

	message = strings.TrimSpace(message)
	if message == "" {
		message = defaultMessage(rt)
	}

	req, err := s.store.Ledger.CreateRequest(ctx, &accesscontrol.AccessRequest{
		RequesterID:  caller,
		OwnerID:      trueOwner,
		ResourceType: rt,
		ResourceID:   resourceID,
		Message:      &message,
	})
	if err != nil {
		return nil, err
	}
	accessRequestsTotal.WithLabelValues(string(rt)).Inc()

	names := s.userNames(ctx, []uuid.UUID{caller, trueOwner})
	ev := notifications.AccessEvent{
		RequestID:     req.ID,
		RequesterID:   caller,
		RequesterName: names[caller],
		OwnerID:       trueOwner,
		OwnerName:     names[trueOwner],
		ResourceType:  string(rt),
		ResourceID:    resourceID,
		ResourceName:  orUnknown(resourceName),
		Status:        string(req.Status),
		Message:       message,
	}
	s.background("access_requested", func(ctx context.Context) error {
		return s.notifier.AccessRequested(ctx, ev)
	})

	return req, nil
}

// ListIncomingRequests returns every request addressed to caller, newest
// first. Deleted resources and users resolve to fallback labels.
func (s *Service) ListIncomingRequests(ctx context.Context, caller uuid.UUID) ([]IncomingRequest, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	reqs, err := s.store.Ledger.ListIncoming(ctx, caller)
	if err != nil {
		return nil, err
	}

	requesters := make([]uuid.UUID, 0, len(reqs))
	keys := make([]resourceKey, 0, len(reqs))
	for _, r := range reqs {
		requesters = append(requesters, r.RequesterID)
		keys = append(keys, resourceKey{r.ResourceType, r.ResourceID})
	}

	var (
		people    map[uuid.UUID]string
		resources map[resourceKey]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		people = s.userNames(gctx, requesters)
		return nil
	})
	g.Go(func() error {
		var err error
		resources, err = s.resourceNames(gctx, keys)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]IncomingRequest, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, IncomingRequest{
			ID:            r.ID,
			RequesterID:   r.RequesterID,
			RequesterName: people[r.RequesterID],
			ResourceType:  r.ResourceType,
			ResourceID:    r.ResourceID,
			ResourceName:  resources[resourceKey{r.ResourceType, r.ResourceID}],
			Status:        r.Status,
			Message:       r.Message,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}

// ListOutgoingRequests returns the requests caller has filed, newest first.
func (s *Service) ListOutgoingRequests(ctx context.Context, caller uuid.UUID) ([]OutgoingRequest, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	reqs, err := s.store.Ledger.ListOutgoing(ctx, caller)
	if err != nil {
		return nil, err
	}

	owners := make([]uuid.UUID, 0, len(reqs))
	keys := make([]resourceKey, 0, len(reqs))
	for _, r := range reqs {
		owners = append(owners, r.OwnerID)
		keys = append(keys, resourceKey{r.ResourceType, r.ResourceID})
	}
	people := s.userNames(ctx, owners)
	resources, err := s.resourceNames(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]OutgoingRequest, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, OutgoingRequest{
			ID:           r.ID,
			OwnerID:      r.OwnerID,
			OwnerName:    people[r.OwnerID],
			ResourceType: r.ResourceType,
			ResourceID:   r.ResourceID,
			ResourceName: resources[resourceKey{r.ResourceType, r.ResourceID}],
			Status:       r.Status,
			Message:      r.Message,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	return out, nil
}

// DecideRequest approves or rejects a pending request addressed to caller.
// Approval writes the status first and the grant second. If the grant write
// fails the request stays approved and ErrGrantIncomplete is returned
// together with the decided request.
func (s *Service) DecideRequest(
	ctx context.Context,
	caller, requestID uuid.UUID,
	decision accesscontrol.Status,
) (*accesscontrol.AccessRequest, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if decision != accesscontrol.StatusApproved && decision != accesscontrol.StatusRejected {
		return nil, fmt.Errorf("%w: decision must be approved or rejected", ErrValidation)
	}

	req, err := s.store.Ledger.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, accesscontrol.ErrRequestNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	if req.OwnerID != caller {
		return nil, fmt.Errorf("%w: only the resource owner can decide this request", ErrForbidden)
	}
	if req.Status.Terminal() {
		return nil, fmt.Errorf("%w: request already %s", ErrConflict, req.Status)
	}

	decided, err := s.store.Ledger.MarkDecided(ctx, requestID, caller, decision)
	if err != nil {
		if errors.Is(err, accesscontrol.ErrRequestNotPending) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, err
	}
	accessDecisionsTotal.WithLabelValues(string(decision)).Inc()

	if decision == accesscontrol.StatusApproved {
		if _, err := s.store.Ledger.CreateGrant(ctx, accesscontrol.GrantFor(decided)); err != nil {
			s.logger.Errorw("approved request has no grant",
				"request_id", decided.ID,
				"requester_id", decided.RequesterID,
				"resource_type", decided.ResourceType,
				"resource_id", decided.ResourceID,
				"error", err,
			)
			return decided, fmt.Errorf("%w: %w", ErrGrantIncomplete, err)
		}
	}

	s.notifyDecision(ctx, decided)
	return decided, nil
}

func (s *Service) notifyDecision(ctx context.Context, req *accesscontrol.AccessRequest) {
	if s.notifier == nil {
		return
	}
	names := s.userNames(ctx, []uuid.UUID{req.RequesterID, req.OwnerID})
	resourceName, err := s.resourceName(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		resourceName = UnknownResource
	}
	ev := notifications.AccessEvent{
		RequestID:     req.ID,
		RequesterID:   req.RequesterID,
		RequesterName: names[req.RequesterID],
		OwnerID:       req.OwnerID,
		OwnerName:     names[req.OwnerID],
		ResourceType:  string(req.ResourceType),
		ResourceID:    req.ResourceID,
		ResourceName:  resourceName,
		Status:        string(req.Status),
	}
	s.background("access_decided", func(ctx context.Context) error {
		return s.notifier.AccessDecided(ctx, ev)
	})
}

// HasRequestedAccess reports whether caller has a pending request for the
// resource. Anonymous callers never have one.
func (s *Service) HasRequestedAccess(ctx context.Context, caller uuid.UUID, rt accesscontrol.ResourceType, resourceID uuid.UUID) (bool, error) {
	if caller == uuid.Nil {
		return false, nil
	}
	if !rt.Valid() {
		return false, fmt.Errorf("%w: unknown resource type %q", ErrValidation, rt)
	}
	return s.store.Ledger.HasPending(ctx, caller, rt, resourceID)
}

// HasSharedAccess reports whether caller holds a grant for the resource.
func (s *Service) HasSharedAccess(ctx context.Context, caller uuid.UUID, rt accesscontrol.ResourceType, resourceID uuid.UUID) (bool, error) {
	if caller == uuid.Nil {
		return false, nil
	}
	if !rt.Valid() {
		return false, fmt.Errorf("%w: unknown resource type %q", ErrValidation, rt)
	}
	return s.store.Ledger.HasGrant(ctx, caller, rt, resourceID)
}

// Grantee is a user holding shared access to a resource.
type Grantee struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// ListGrantees shows the owner who a category or product has been shared
// with, in grant order.
func (s *Service) ListGrantees(ctx context.Context, caller uuid.UUID, rt accesscontrol.ResourceType, resourceID uuid.UUID) ([]Grantee, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !rt.Valid() {
		return nil, fmt.Errorf("%w: unknown resource type %q", ErrValidation, rt)
	}
	owner, _, err := s.resourceOwner(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}
	if err := guard(caller, owner); err != nil {
		return nil, err
	}

	ids, err := s.store.Ledger.ListGrantees(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}
	names := s.userNames(ctx, ids)

	out := make([]Grantee, 0, len(ids))
	for _, id := range ids {
		out = append(out, Grantee{UserID: id, Name: names[id]})
	}
	return out, nil
}

// RepairGrants re-creates grants for approved requests that lack one and
// returns how many were written.
func (s *Service) RepairGrants(ctx context.Context, batch int) (int, error) {
	pending, err := s.store.Ledger.ApprovedWithoutGrant(ctx, batch)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, req := range pending {
		if _, err := s.store.Ledger.CreateGrant(ctx, accesscontrol.GrantFor(req)); err != nil {
			return repaired, fmt.Errorf("repair grant for request %s: %w", req.ID, err)
		}
		repaired++
		grantRepairsTotal.Inc()
		s.logger.Infow("grant repaired", "request_id", req.ID, "requester_id", req.RequesterID)
		// the decision notification was skipped when the grant failed
		s.notifyDecision(ctx, req)
	}
	return repaired, nil
}

// SweepOrphans deletes ledger rows that point at deleted resources.
func (s *Service) SweepOrphans(ctx context.Context) (int64, error) {
	return s.store.Ledger.DeleteOrphans(ctx)
}

func orUnknown(name string) string {
	if name == "" {
		return UnknownResource
	}
	return name
}
