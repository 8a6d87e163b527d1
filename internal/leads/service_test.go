package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/leadbot/internal/flow"
)

type fakeJournal struct {
	nextID    int64
	insertErr error
	inserted  []flow.LeadIntake
	submitted map[int64]int64
	failed    map[int64]string
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{
		nextID:    1,
		submitted: make(map[int64]int64),
		failed:    make(map[int64]string),
	}
}

func (f *fakeJournal) Insert(_ context.Context, lead flow.LeadIntake) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, lead)
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeJournal) MarkSubmitted(_ context.Context, id, crmLeadID int64) error {
	f.submitted[id] = crmLeadID
	return nil
}

func (f *fakeJournal) MarkFailed(_ context.Context, id int64, cause string) error {
	f.failed[id] = cause
	return nil
}

type fakeCRM struct {
	leadID int64
	err    error
	calls  int
}

func (f *fakeCRM) CreateLead(_ context.Context, _ flow.LeadIntake) (int64, error) {
	f.calls++
	return f.leadID, f.err
}

var intake = flow.LeadIntake{
	Name:        "Anna",
	Phone:       "+7 999 123-45-67",
	Identity:    42,
	SubmittedAt: time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC),
}

func TestSubmitSuccess(t *testing.T) {
	journal := newFakeJournal()
	crm := &fakeCRM{leadID: 555}
	svc := NewService(journal, crm)

	if err := svc.Submit(context.Background(), intake); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if crm.calls != 1 {
		t.Fatalf("crm calls = %d, want 1", crm.calls)
	}
	if len(journal.inserted) != 1 {
		t.Fatalf("journal inserts = %d, want 1", len(journal.inserted))
	}
	if journal.submitted[1] != 555 {
		t.Fatalf("journal record 1 not marked submitted with crm id 555: %+v", journal.submitted)
	}
}

func TestSubmitCRMFailureMarksJournal(t *testing.T) {
	journal := newFakeJournal()
	crm := &fakeCRM{err: errors.New("bitrix: connection refused")}
	svc := NewService(journal, crm)

	err := svc.Submit(context.Background(), intake)
	if err == nil {
		t.Fatal("expected CRM error to surface")
	}
	cause, ok := journal.failed[1]
	if !ok {
		t.Fatalf("journal record not marked failed: %+v", journal.failed)
	}
	if cause == "" {
		t.Fatal("failure cause must be recorded")
	}
}

func TestSubmitJournalFailureDoesNotBlockCRM(t *testing.T) {
	journal := newFakeJournal()
	journal.insertErr = errors.New("pq: connection reset")
	crm := &fakeCRM{leadID: 9}
	svc := NewService(journal, crm)

	if err := svc.Submit(context.Background(), intake); err != nil {
		t.Fatalf("submit must succeed when only the journal fails: %v", err)
	}
	if crm.calls != 1 {
		t.Fatalf("crm calls = %d, want 1", crm.calls)
	}
	if len(journal.submitted) != 0 {
		t.Fatalf("no journal record exists to mark: %+v", journal.submitted)
	}
}

func TestSubmitWithoutJournal(t *testing.T) {
	crm := &fakeCRM{leadID: 1}
	svc := NewService(nil, crm)

	if err := svc.Submit(context.Background(), intake); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if crm.calls != 1 {
		t.Fatalf("crm calls = %d, want 1", crm.calls)
	}
}
