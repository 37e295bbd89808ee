package casemanager

import (
	"context"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
	"github.com/Ecews-Speed-Project/cmt-api/pkg/pagination"
)

// List returns the case managers visible to the caller, ordered by name.
func (s *Service) List(ctx context.Context, id access.Identity) ([]carerecord.CaseManager, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.MatchesNothing() {
		return []carerecord.CaseManager{}, nil
	}
	out, err := s.store.ListCaseManagers(ctx, scope.Predicate(access.CaseManagers))
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope.String()).Msg("list case managers failed")
		return nil, err
	}
	if out == nil {
		out = []carerecord.CaseManager{}
	}
	return out, nil
}

// Patients pages through the patients assigned to case manager cmID under
// any of its rows. A case manager outside the caller's scope is not found.
func (s *Service) Patients(ctx context.Context, id access.Identity, cmID string, p pagination.Params) ([]carerecord.Patient, int, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.store.ListCaseManagers(ctx, predicate.And(
		scope.Predicate(access.CaseManagers),
		predicate.Eq(predicate.Col("case_manager.id"), predicate.Val(cmID)),
	))
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, carerecord.NotFound("case manager %s", cmID)
	}

	keys := make([]interface{}, len(rows))
	for i, cm := range rows {
		keys[i] = cm.CMID
	}
	assigned := predicate.In(predicate.Col("patient.case_manager_id"), keys...)

	total, err := s.store.CountPatients(ctx, assigned)
	if err != nil {
		return nil, 0, err
	}
	page, err := s.store.ListPatients(ctx, carerecord.PatientQuery{Where: assigned, Limit: p.Limit, Offset: p.Offset})
	if err != nil {
		return nil, 0, err
	}
	if page == nil {
		page = []carerecord.Patient{}
	}
	s.logger.Debug().Str("case_manager_id", cmID).Int("total", total).Msg("case manager patients")
	return page, total, nil
}
