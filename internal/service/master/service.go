package master

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
)

type MasterService interface {
	// Branch operations
	CreateBranch(ctx context.Context, req branch.CreateBranchRequest) (branch.BranchResponse, error)
	GetBranch(ctx context.Context, id string, companyID string) (branch.BranchResponse, error)
	ListBranches(ctx context.Context, companyID string) ([]branch.BranchResponse, error)
	UpdateBranch(ctx context.Context, req branch.UpdateBranchRequest) (branch.BranchResponse, error)
	DeleteBranch(ctx context.Context, id string, companyID string) error
}

type masterServiceImpl struct {
	branchRepo branch.BranchRepository
}

func NewMasterService(branchRepo branch.BranchRepository) MasterService {
	return &masterServiceImpl{branchRepo: branchRepo}
}

// ==================== BRANCH OPERATIONS ====================

func (s *masterServiceImpl) CreateBranch(ctx context.Context, req branch.CreateBranchRequest) (branch.BranchResponse, error) {
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if err := req.Validate(); err != nil {
		return branch.BranchResponse{}, err
	}

	created, err := s.branchRepo.Create(ctx, branch.Branch{
		CompanyID:                  req.CompanyID,
		Name:                       req.Name,
		Address:                    req.Address,
		Latitude:                   req.Latitude,
		Longitude:                  req.Longitude,
		RadiusMeters:               req.RadiusMeters,
		Timezone:                   req.Timezone,
		WorkStartTime:              req.WorkStartTime,
		WorkEndTime:                req.WorkEndTime,
		GracePeriodMinutes:         req.GracePeriodMinutes,
		LateChargeAmount:           req.LateChargeAmount,
		EarlyDepartureChargeAmount: req.EarlyDepartureChargeAmount,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return branch.BranchResponse{}, branch.ErrBranchNameExists
		}
		return branch.BranchResponse{}, fmt.Errorf("failed to create branch: %w", err)
	}

	slog.Info("branch created", "branch_id", created.ID, "company_id", created.CompanyID, "radius_meters", created.RadiusMeters)
	return branch.ToResponse(created), nil
}

func (s *masterServiceImpl) GetBranch(ctx context.Context, id string, companyID string) (branch.BranchResponse, error) {
	entity, err := s.get(ctx, id, companyID)
	if err != nil {
		return branch.BranchResponse{}, err
	}
	return branch.ToResponse(entity), nil
}

func (s *masterServiceImpl) ListBranches(ctx context.Context, companyID string) ([]branch.BranchResponse, error) {
	branches, err := s.branchRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	// If no branches found, return empty list instead of error
	responses := make([]branch.BranchResponse, 0, len(branches))
	for _, b := range branches {
		responses = append(responses, branch.ToResponse(b))
	}
	return responses, nil
}

func (s *masterServiceImpl) UpdateBranch(ctx context.Context, req branch.UpdateBranchRequest) (branch.BranchResponse, error) {
	if err := req.Validate(); err != nil {
		return branch.BranchResponse{}, err
	}

	entity, err := s.get(ctx, req.ID, req.CompanyID)
	if err != nil {
		return branch.BranchResponse{}, err
	}
	req.Apply(&entity)

	if err := s.branchRepo.Update(ctx, entity); err != nil {
		if isUniqueViolation(err) {
			return branch.BranchResponse{}, branch.ErrBranchNameExists
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return branch.BranchResponse{}, branch.ErrBranchNotFound
		}
		return branch.BranchResponse{}, fmt.Errorf("failed to update branch: %w", err)
	}
	return branch.ToResponse(entity), nil
}

func (s *masterServiceImpl) DeleteBranch(ctx context.Context, id string, companyID string) error {
	err := s.branchRepo.Delete(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, branch.ErrBranchNotFound) {
			return branch.ErrBranchNotFound
		}
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}

func (s *masterServiceImpl) get(ctx context.Context, id, companyID string) (branch.Branch, error) {
	entity, err := s.branchRepo.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, branch.ErrBranchNotFound) {
			return branch.Branch{}, branch.ErrBranchNotFound
		}
		return branch.Branch{}, fmt.Errorf("failed to get branch: %w", err)
	}
	return entity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
