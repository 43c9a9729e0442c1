package storage

import (
	"errors"
	"log"

	"ecosakshi/backend/internal/models"

	"gorm.io/gorm"
)

// CreateReport persists a new report together with its initial status-history
// entry in one transaction.
func (s *Service) CreateReport(report *models.Report, initial models.StatusChange) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			log.Printf("ERROR: Failed to create report for user %s: %v", report.UserID, err)
			return err
		}
		initial.ReportID = report.ID
		return tx.Create(&initial).Error
	})
}

// GetReportByID loads a report with its history (most recent first) and media.
func (s *Service) GetReportByID(id string) (*models.Report, error) {
	return s.findReport("id = ?", id)
}

// GetReportByComplaintID loads a report by its public tracking code.
func (s *Service) GetReportByComplaintID(complaintID string) (*models.Report, error) {
	return s.findReport("complaint_id = ?", complaintID)
}

func (s *Service) findReport(query string, arg interface{}) (*models.Report, error) {
	var report models.Report
	err := s.DB.
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at DESC, id DESC")
		}).
		Preload("Media").
		Where(query, arg).
		First(&report).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns reports matching the filter, newest first.
func (s *Service) ListReports(filter ReportFilter) ([]models.Report, error) {
	q := s.DB.Model(&models.Report{}).Order("created_at DESC")

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		q = q.Where("city = ?", filter.City)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.PublicOnly {
		if filter.ViewerID != "" {
			q = q.Where("is_public = ? OR user_id = ?", true, filter.ViewerID)
		} else {
			q = q.Where("is_public = ?", true)
		}
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		log.Printf("ERROR: Failed to list reports: %v", err)
		return nil, err
	}
	return reports, nil
}

// ApplyTransition commits a status change: the report row is updated
// conditionally on the version the caller read, and the history entry is
// appended in the same transaction. A concurrent transition on the same
// report makes the version check miss, and the caller gets ErrConflict
// with nothing written.
func (s *Service) ApplyTransition(report *models.Report, change models.StatusChange) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     report.Status,
			"is_public":  report.IsPublic,
			"version":    gorm.Expr("version + 1"),
			"updated_at": change.ChangedAt,
		}
		if report.Response.RespondedAt != nil {
			updates["response_message"] = report.Response.Message
			updates["response_action_taken"] = report.Response.ActionTaken
			updates["response_responded_at"] = report.Response.RespondedAt
		}

		res := tx.Model(&models.Report{}).
			Where("id = ? AND version = ?", report.ID, report.Version).
			Updates(updates)
		if res.Error != nil {
			log.Printf("ERROR: Failed to update report %s: %v", report.ID, res.Error)
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		change.ReportID = report.ID
		return tx.Create(&change).Error
	})
}

// UpdateSeverity changes the reporter's severity assessment. The status
// condition keeps it editable only before verification.
func (s *Service) UpdateSeverity(id string, severity models.Severity) error {
	res := s.DB.Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Update("severity", severity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteReport removes the report and its dependent rows.
func (s *Service) DeleteReport(id string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&models.StatusChange{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.MediaAttachment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Report{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// IncrementViewCount bumps the public-read counter in the database so
// concurrent lookups never lose an increment.
func (s *Service) IncrementViewCount(id string) error {
	return s.DB.Model(&models.Report{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}
