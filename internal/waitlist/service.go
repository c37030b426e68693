package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

const duplicateMessage = "email already on the waitlist"

// Service manages waitlist signups.
type Service interface {
	Join(ctx context.Context, req JoinRequest) (*EntryDTO, error)
	List(ctx context.Context) (*ListResponse, error)
}

type service struct {
	store store.Store
}

func NewService(st store.Store) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &service{store: st}, nil
}

// Join records a signup. The lookup only produces a friendlier error for the
// common case; the store's uniqueness check decides concurrent signups.
func (s *service) Join(ctx context.Context, req JoinRequest) (*EntryDTO, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}

	_, err := s.store.Waitlist().FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicateMessage)
	case !errors.Is(err, store.ErrNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup waitlist entry")
	}

	entry := &models.WaitlistEntry{
		Name:    name,
		Email:   email,
		Company: optional(req.Company),
		Role:    optional(req.Role),
	}
	if err := s.store.Waitlist().Create(ctx, entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicateMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create waitlist entry")
	}
	dto := FromModel(entry)
	return &dto, nil
}

func (s *service) List(ctx context.Context) (*ListResponse, error) {
	entries, err := s.store.Waitlist().List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list waitlist")
	}
	out := &ListResponse{Entries: make([]EntryDTO, 0, len(entries))}
	for i := range entries {
		out.Entries = append(out.Entries, FromModel(&entries[i]))
	}
	return out, nil
}

func optional(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
