package access

import (
	"context"
	"fmt"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// Role names as issued by the identity provider.
const (
	RoleSuperAdmin  = "Super Admin"
	RoleAdmin       = "Admin"
	RoleState       = "State"
	RoleCaseManager = "Case Manager"
)

// Identity is the caller as established by the authentication layer.
type Identity struct {
	UserID        string   `json:"user_id"`
	Roles         []string `json:"roles"`
	StateID       int      `json:"state_id"`
	CaseManagerID string   `json:"case_manager_id,omitempty"`
}

func (id Identity) Has(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity; ok is false when the
// request was never authenticated.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RoleKind tags the ScopeRole variant.
type RoleKind int

const (
	Unscoped RoleKind = iota
	SuperAdmin
	Admin
	StateOfficer
	CaseManager
)

func (k RoleKind) String() string {
	switch k {
	case SuperAdmin:
		return "super_admin"
	case Admin:
		return "admin"
	case StateOfficer:
		return "state"
	case CaseManager:
		return "case_manager"
	}
	return "unscoped"
}

// ScopeRole is the effective role of a caller. StateID is set for Admin and
// StateOfficer, CaseManagerID for CaseManager.
type ScopeRole struct {
	Kind          RoleKind
	StateID       int
	CaseManagerID string
}

// RoleOf picks the broadest role in the identity's role set.
func RoleOf(id Identity) ScopeRole {
	switch {
	case id.Has(RoleSuperAdmin):
		return ScopeRole{Kind: SuperAdmin}
	case id.Has(RoleAdmin):
		return ScopeRole{Kind: Admin, StateID: id.StateID}
	case id.Has(RoleState):
		return ScopeRole{Kind: StateOfficer, StateID: id.StateID}
	case id.Has(RoleCaseManager) && id.CaseManagerID != "":
		return ScopeRole{Kind: CaseManager, CaseManagerID: id.CaseManagerID}
	}
	return ScopeRole{Kind: Unscoped}
}

// Subject is the record family a scope predicate is rendered for.
type Subject int

const (
	Patients Subject = iota
	CaseManagers
	Teams
	// TeamMembers is case managers seen as members of a visible team: a case
	// manager scope widens to everyone on the same (cmt, state, facility).
	TeamMembers
)

type scopeKind int

const (
	matchNothing scopeKind = iota
	matchAll
	matchState
	matchCaseManager
)

// Scope is a resolved visibility rule. The zero value matches nothing.
type Scope struct {
	Role        ScopeRole
	kind        scopeKind
	stateName   string
	caseManager carerecord.CaseManager
}

func National() Scope {
	return Scope{Role: ScopeRole{Kind: SuperAdmin}, kind: matchAll}
}

func Nothing(role ScopeRole) Scope {
	return Scope{Role: role, kind: matchNothing}
}

func ForState(role ScopeRole, stateName string) Scope {
	return Scope{Role: role, kind: matchState, stateName: stateName}
}

func ForCaseManager(cm carerecord.CaseManager) Scope {
	return Scope{
		Role:        ScopeRole{Kind: CaseManager, CaseManagerID: cm.ID},
		kind:        matchCaseManager,
		caseManager: cm,
	}
}

func (s Scope) IsNational() bool { return s.kind == matchAll }

func (s Scope) MatchesNothing() bool { return s.kind == matchNothing }

// StateName is the state the scope is restricted to, if any.
func (s Scope) StateName() string { return s.stateName }

// Predicate renders the scope for one record family.
func (s Scope) Predicate(subject Subject) *predicate.Node {
	switch s.kind {
	case matchAll:
		return predicate.True()
	case matchState:
		return predicate.Eq(predicate.Col(stateColumn(subject)), predicate.Val(s.stateName))
	case matchCaseManager:
		cm := s.caseManager
		switch subject {
		case Patients:
			return predicate.Eq(predicate.Col("patient.case_manager_id"), predicate.Val(cm.CMID))
		case CaseManagers:
			return predicate.Eq(predicate.Col("case_manager.id"), predicate.Val(cm.ID))
		case Teams:
			return predicate.And(
				predicate.Eq(predicate.Col("team.name"), predicate.Val(cm.Team)),
				predicate.Eq(predicate.Col("team.state"), predicate.Val(cm.State)),
				predicate.Eq(predicate.Col("team.facility_name"), predicate.Val(cm.Facility)),
			)
		case TeamMembers:
			return predicate.And(
				predicate.Eq(predicate.Col("case_manager.cmt"), predicate.Val(cm.Team)),
				predicate.Eq(predicate.Col("case_manager.state"), predicate.Val(cm.State)),
				predicate.Eq(predicate.Col("case_manager.facilities"), predicate.Val(cm.Facility)),
			)
		}
	}
	return predicate.False()
}

func stateColumn(subject Subject) string {
	switch subject {
	case CaseManagers, TeamMembers:
		return "case_manager.state"
	case Teams:
		return "team.state"
	}
	return "patient.state"
}

// AllowsCaseManager reports whether cm is visible under the scope.
func (s Scope) AllowsCaseManager(cm *carerecord.CaseManager) bool {
	switch s.kind {
	case matchAll:
		return true
	case matchState:
		return cm.State == s.stateName
	case matchCaseManager:
		return cm.ID == s.caseManager.ID
	}
	return false
}

// AllowsTeam reports whether t is visible under the scope.
func (s Scope) AllowsTeam(t *carerecord.Team) bool {
	switch s.kind {
	case matchAll:
		return true
	case matchState:
		return t.State == s.stateName
	case matchCaseManager:
		return t.Includes(&s.caseManager)
	}
	return false
}

func (s Scope) String() string {
	switch s.kind {
	case matchAll:
		return "national"
	case matchState:
		return fmt.Sprintf("state(%s)", s.stateName)
	case matchCaseManager:
		return fmt.Sprintf("case_manager(%s)", s.caseManager.ID)
	}
	return "none"
}
