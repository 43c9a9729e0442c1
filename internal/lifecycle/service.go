// Package lifecycle owns the report status state machine: transition
// validation, the append-only status history, derived public visibility and
// authority-response attachment.
package lifecycle

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ecosakshi/backend/internal/config"
	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/notify"
	"ecosakshi/backend/internal/storage"
)

var (
	// ErrInvalidTransition means the requested status change violates the
	// state machine (terminal state, or a jump the table does not allow).
	ErrInvalidTransition = errors.New("lifecycle: invalid status transition")
	// ErrNoOpUpdate means the update carries neither a status change nor
	// notes, so there is nothing meaningful to record.
	ErrNoOpUpdate = errors.New("lifecycle: nothing to update")
	// ErrUnauthorized means the acting user lacks the role or ownership the
	// operation requires.
	ErrUnauthorized = errors.New("lifecycle: not allowed")
	// ErrInvalidInput means a required field is missing or outside its
	// enumeration.
	ErrInvalidInput = errors.New("lifecycle: invalid input")
)

// Service handles the business logic of the report lifecycle.
type Service struct {
	Storage  storage.Storage
	Notifier notify.Notifier

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// NewService creates a new lifecycle service.
func NewService(s storage.Storage, n notify.Notifier) *Service {
	return &Service{Storage: s, Notifier: n, Now: time.Now}
}

// Submit files a new report for the acting citizen. The report starts in
// pending with its first history entry, and is not publicly visible.
func (s *Service) Submit(report *models.Report, actor models.Actor) (*models.Report, error) {
	if report.Title == "" || report.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if !report.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, report.Category)
	}
	if report.Severity == "" {
		report.Severity = models.SeverityMedium
	}
	if !report.Severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, report.Severity)
	}

	now := s.Now()
	report.UserID = actor.ID
	report.Status = models.StatusPending
	report.IsPublic = false

	initial := models.StatusChange{
		Status:    models.StatusPending,
		Notes:     "Report submitted",
		ChangedBy: actor.ID,
		ChangedAt: now,
	}
	if err := s.Storage.CreateReport(report, initial); err != nil {
		return nil, err
	}
	return s.Storage.GetReportByID(report.ID)
}

// UpdateStatus applies a status transition (or records notes under the
// current status), appends the history entry, recomputes public visibility
// and notifies the reporter. The state change is durable before the
// notification is attempted; a failed notification never rolls it back.
func (s *Service) UpdateStatus(reportID string, newStatus models.ReportStatus, notes string, actor models.Actor) (*models.Report, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: role %s may not change report status", ErrUnauthorized, actor.Role)
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}

	report, err := s.Storage.GetReportByID(reportID)
	if err != nil {
		return nil, err
	}

	old := report.Status
	if old.Terminal() {
		return nil, fmt.Errorf("%w: report is already %s", ErrInvalidTransition, old)
	}
	if newStatus == old {
		if notes == "" {
			return nil, ErrNoOpUpdate
		}
		// Same status with notes is a note-only history entry.
	} else if !config.TransitionAllowed(old, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, old, newStatus)
	}

	report.Status = newStatus
	report.IsPublic = newStatus.Public()

	change := models.StatusChange{
		Status:    newStatus,
		Notes:     notes,
		ChangedBy: actor.ID,
		ChangedAt: s.Now(),
	}
	if err := s.Storage.ApplyTransition(report, change); err != nil {
		return nil, err
	}

	if s.Notifier != nil && newStatus != old {
		s.Notifier.StatusChanged(report, old, notes)
	}
	return s.Storage.GetReportByID(reportID)
}

// ResolveWithResponse is the formal resolution path: the report must be
// in-progress, and the authority response is attached at most once,
// atomically with the transition to resolved.
func (s *Service) ResolveWithResponse(reportID, message, actionTaken string, actor models.Actor) (*models.Report, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: role %s may not resolve reports", ErrUnauthorized, actor.Role)
	}
	if message == "" || actionTaken == "" {
		return nil, fmt.Errorf("%w: message and action taken are required", ErrInvalidInput)
	}

	report, err := s.Storage.GetReportByID(reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: resolution requires in-progress, report is %s", ErrInvalidTransition, report.Status)
	}
	if report.Response.RespondedAt != nil {
		return nil, fmt.Errorf("%w: authority response already attached", ErrInvalidTransition)
	}

	now := s.Now()
	old := report.Status
	report.Status = models.StatusResolved
	report.IsPublic = true
	report.Response = models.AuthorityResponse{
		Message:     message,
		ActionTaken: actionTaken,
		RespondedAt: &now,
	}

	change := models.StatusChange{
		Status:    models.StatusResolved,
		Notes:     "Issue resolved by authority",
		ChangedBy: actor.ID,
		ChangedAt: now,
	}
	if err := s.Storage.ApplyTransition(report, change); err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		s.Notifier.StatusChanged(report, old, change.Notes)
	}
	return s.Storage.GetReportByID(reportID)
}

// UpdateSeverity lets the original reporter adjust severity while the report
// is still pending verification.
func (s *Service) UpdateSeverity(reportID string, severity models.Severity, actor models.Actor) error {
	if !severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, severity)
	}

	report, err := s.Storage.GetReportByID(reportID)
	if err != nil {
		return err
	}
	if report.UserID != actor.ID {
		return fmt.Errorf("%w: only the reporter may change severity", ErrUnauthorized)
	}
	if report.Status != models.StatusPending {
		return fmt.Errorf("%w: severity is read-only after verification", ErrInvalidTransition)
	}

	return s.Storage.UpdateSeverity(reportID, severity)
}

// BulkActionKind names the actions the bulk endpoint accepts.
type BulkActionKind string

const (
	BulkVerify  BulkActionKind = "verify"
	BulkResolve BulkActionKind = "resolve"
	BulkReject  BulkActionKind = "reject"
	BulkDelete  BulkActionKind = "delete"
)

// BulkResult is the outcome for one report in a bulk action.
type BulkResult struct {
	ReportID string `json:"report_id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// BulkAction applies the action to every report independently: one failing
// transition does not roll back the others. It returns a per-id outcome list
// plus the count of reports affected.
func (s *Service) BulkAction(reportIDs []string, action BulkActionKind, actor models.Actor) ([]BulkResult, int, error) {
	if !actor.IsStaff() {
		return nil, 0, fmt.Errorf("%w: role %s may not run bulk actions", ErrUnauthorized, actor.Role)
	}
	if action == BulkDelete && actor.Role != models.RoleAdmin {
		return nil, 0, fmt.Errorf("%w: only admins may bulk-delete", ErrUnauthorized)
	}

	results := make([]BulkResult, 0, len(reportIDs))
	affected := 0
	for _, id := range reportIDs {
		var err error
		switch action {
		case BulkVerify:
			_, err = s.UpdateStatus(id, models.StatusVerified, "", actor)
		case BulkResolve:
			// Quick-resolve: no authority response attached.
			_, err = s.UpdateStatus(id, models.StatusResolved, "", actor)
		case BulkReject:
			_, err = s.UpdateStatus(id, models.StatusRejected, "", actor)
		case BulkDelete:
			err = s.Storage.DeleteReport(id)
		default:
			return nil, 0, fmt.Errorf("%w: unknown bulk action %q", ErrInvalidInput, action)
		}

		res := BulkResult{ReportID: id, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
			log.Printf("Bulk %s failed for report %s: %v", action, id, err)
		} else {
			affected++
		}
		results = append(results, res)
	}
	return results, affected, nil
}

// Track is the public, unauthenticated read path: lookup by complaint ID,
// counting the view.
func (s *Service) Track(complaintID string) (*models.Report, error) {
	report, err := s.Storage.GetReportByComplaintID(complaintID)
	if err != nil {
		return nil, err
	}
	if err := s.Storage.IncrementViewCount(report.ID); err != nil {
		log.Printf("ERROR: Failed to count view for report %s: %v", report.ID, err)
	}
	return report, nil
}
