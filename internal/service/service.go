// Package service implements the application's use cases on top of the
// repositories, the visibility policy and the publish workflow.
package service

import (
	"context"
	"errors"

	"onebatch/internal/models"
	"onebatch/internal/policy"
	"onebatch/internal/repository"
	"onebatch/internal/validation"
	"onebatch/internal/workflow"
)

// RelationResolver computes the follow-ledger facts between viewer and owner.
type RelationResolver interface {
	Relation(ctx context.Context, viewer, owner *models.User) (policy.Relation, error)
}

// requireHandle rejects anonymous callers and users who have not claimed a handle.
func requireHandle(actor *models.User) error {
	if actor == nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	if actor.IsProvisional() {
		return models.NewInvalidStateError(workflow.MsgChooseUsername)
	}
	return nil
}

// lookupOwner resolves a public handle. Provisional identities are never addressable.
func lookupOwner(ctx context.Context, users repository.UserRepository, handle string) (*models.User, error) {
	handle = validation.NormalizeHandle(handle)
	if handle == "" || models.IsProvisionalHandle(handle) {
		return nil, models.NewNotFoundError("User", handle)
	}
	return users.GetByName(ctx, handle)
}

// isRejection reports whether err is an expected client-facing refusal rather than a fault.
func isRejection(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code != models.CodeInternal
}

func sameUser(a, b *models.User) bool {
	return a != nil && b != nil && a.Name == b.Name
}
