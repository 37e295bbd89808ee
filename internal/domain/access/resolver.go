package access

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

// Lookup resolves organizational ids to the values records are keyed by.
type Lookup interface {
	StateName(ctx context.Context, stateID int) (string, error)
	CaseManager(ctx context.Context, id string) (*carerecord.CaseManager, error)
}

// Resolver turns a caller identity into a Scope. It is called once per
// request; state assignments are never cached.
type Resolver struct {
	lookup Lookup
	logger zerolog.Logger
}

func NewResolver(lookup Lookup, logger zerolog.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns the caller's scope. Unknown states or case managers yield
// a scope that matches nothing; store failures are returned.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (Scope, error) {
	role := RoleOf(id)

	switch role.Kind {
	case SuperAdmin:
		return National(), nil

	case Admin, StateOfficer:
		name, err := r.lookup.StateName(ctx, role.StateID)
		if errors.Is(err, carerecord.ErrNotFound) {
			r.logger.Warn().Str("user_id", id.UserID).Int("state_id", role.StateID).
				Msg("state not found, scope matches nothing")
			return Nothing(role), nil
		}
		if err != nil {
			return Scope{}, err
		}
		return ForState(role, name), nil

	case CaseManager:
		cm, err := r.lookup.CaseManager(ctx, role.CaseManagerID)
		if errors.Is(err, carerecord.ErrNotFound) {
			r.logger.Warn().Str("user_id", id.UserID).Str("case_manager_id", role.CaseManagerID).
				Msg("case manager not found, scope matches nothing")
			return Nothing(role), nil
		}
		if err != nil {
			return Scope{}, err
		}
		return ForCaseManager(*cm), nil
	}

	r.logger.Debug().Str("user_id", id.UserID).Strs("roles", id.Roles).Msg("no scoped role")
	return Nothing(role), nil
}
