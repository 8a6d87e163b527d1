// Package leads turns completed intakes into CRM submissions, journaling
// every intake locally first.
package leads

import (
	"context"
	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/flow"
)

// Submitter performs the single outbound CRM call for one intake.
type Submitter interface {
	CreateLead(ctx context.Context, lead flow.LeadIntake) (int64, error)
}

// Journal persists intake records independently of the CRM outcome.
type Journal interface {
	Insert(ctx context.Context, lead flow.LeadIntake) (int64, error)
	MarkSubmitted(ctx context.Context, id, crmLeadID int64) error
	MarkFailed(ctx context.Context, id int64, cause string) error
}

// Service is the lead submitter: journal first, then one CRM call, no retry.
type Service struct {
	journal Journal
	crm     Submitter
}

// NewService wires the journal and the CRM client.
func NewService(journal Journal, crm Submitter) *Service {
	return &Service{journal: journal, crm: crm}
}

// Submit forwards one intake to the CRM. A journal failure never blocks the
// CRM call, and the returned error reflects the CRM call only; the caller
// decides what the user sees.
func (s *Service) Submit(ctx context.Context, lead flow.LeadIntake) error {
	var journalID int64
	if s.journal != nil {
		id, err := s.journal.Insert(ctx, lead)
		if err != nil {
			logger.SVCLeads.Error("journal insert failed",
				slog.String("event", "lead.journal"),
				slog.String("status", "fail"),
				slog.Int64("user_id", int64(lead.Identity)),
				slog.String("err", err.Error()),
			)
		} else {
			journalID = id
		}
	}

	crmLeadID, err := s.crm.CreateLead(ctx, lead)
	if err != nil {
		logger.SVCLeads.Error("crm submission failed",
			slog.String("event", "lead.submit"),
			slog.String("status", "fail"),
			slog.Int64("user_id", int64(lead.Identity)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if journalID != 0 {
			if jerr := s.journal.MarkFailed(ctx, journalID, logger.SanitizeLimit(err.Error(), 512)); jerr != nil {
				logger.SVCLeads.Warn("journal update failed",
					slog.String("event", "lead.journal"),
					slog.String("err", jerr.Error()),
				)
			}
		}
		return err
	}

	logger.SVCLeads.Info("lead submitted",
		slog.String("event", "lead.submit"),
		slog.String("status", "ok"),
		slog.Int64("user_id", int64(lead.Identity)),
		slog.Int64("lead_id", crmLeadID),
	)
	if journalID != 0 {
		if jerr := s.journal.MarkSubmitted(ctx, journalID, crmLeadID); jerr != nil {
			logger.SVCLeads.Warn("journal update failed",
				slog.String("event", "lead.journal"),
				slog.String("err", jerr.Error()),
			)
		}
	}
	return nil
}
