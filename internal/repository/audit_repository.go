package repository

import (
	"context"
	"fmt"

	"github.com/Blokmap/backend/internal/database"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
)

// AuditRepository handles audit log database operations
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if err := database.DB.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// GetByProfileID retrieves audit logs for a profile
func (r *AuditRepository) GetByProfileID(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := database.DB.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}

	return logs, nil
}

// GetByResource retrieves audit logs for a specific resource
func (r *AuditRepository) GetByResource(ctx context.Context, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := database.DB.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}
