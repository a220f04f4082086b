// Package triage owns the complaint create/update contract: submission with
// asynchronous analysis, official mutations and the queue ordering policy.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"barangay/backend/internal/analysis"
	"barangay/backend/internal/auth"
	"barangay/backend/internal/config"
	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditRecorder appends complaint history. Implementations absorb their own failures.
type AuditRecorder interface {
	RecordComplaint(ctx context.Context, complaintID string, action models.AuditAction, author, details string)
}

// Draft is a resident submission before it becomes a Complaint.
type Draft struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Category      string   `json:"category"`
	SubmittedBy   string   `json:"submittedBy"`
	ContactNumber string   `json:"contactNumber"`
	Photos        []string `json:"photos"`
}

// FieldUpdate holds the fields officials may edit after submission.
// Nil fields are left untouched.
type FieldUpdate struct {
	Title         *string `json:"title"`
	Category      *string `json:"category"`
	Location      *string `json:"location"`
	ContactNumber *string `json:"contactNumber"`
}

// Options tune a Pipeline.
type Options struct {
	// AnalysisTimeout bounds every analysis call. Zero uses the default.
	AnalysisTimeout time.Duration
}

// Pipeline orchestrates complaint submission, analysis attachment and
// official mutations against a ComplaintStore.
type Pipeline struct {
	store    storage.ComplaintStore
	analyzer analysis.Analyzer
	audit    AuditRecorder
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	analysisTimeout time.Duration
	now             func() time.Time

	wg sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewPipeline creates a pipeline. A nil metrics value registers private collectors.
func NewPipeline(store storage.ComplaintStore, analyzer analysis.Analyzer, audit AuditRecorder, logger zerolog.Logger, m *metrics.Metrics, opts Options) *Pipeline {
	if m == nil {
		m = metrics.NewNop()
	}
	if analyzer == nil {
		analyzer = analysis.Unavailable{}
	}
	timeout := opts.AnalysisTimeout
	if timeout <= 0 {
		timeout = config.DefaultAnalysisTimeout
	}
	return &Pipeline{
		store:           store,
		analyzer:        analyzer,
		audit:           audit,
		logger:          logger.With().Str("component", "triage").Logger(),
		metrics:         m,
		analysisTimeout: timeout,
		now:             time.Now,
		inflight:        make(map[string]struct{}),
	}
}

// Wait blocks until every scheduled analysis has been attached.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Submit validates and stores a new complaint, then schedules its analysis.
// The returned record is always PENDING and unanalyzed.
func (p *Pipeline) Submit(ctx context.Context, session *auth.Session, draft Draft) (*models.Complaint, error) {
	title := strings.TrimSpace(draft.Title)
	description := strings.TrimSpace(draft.Description)
	location := strings.TrimSpace(draft.Location)
	switch {
	case title == "":
		return nil, p.invalid("submit", &ValidationError{Field: "title"})
	case description == "":
		return nil, p.invalid("submit", &ValidationError{Field: "description"})
	case location == "":
		return nil, p.invalid("submit", &ValidationError{Field: "location"})
	}

	submittedBy := strings.TrimSpace(draft.SubmittedBy)
	if submittedBy == "" {
		submittedBy = session.Actor()
	}
	if submittedBy == "" {
		submittedBy = config.AnonymousSubmitter
	}

	c := &models.Complaint{
		ID:            uuid.New().String(),
		Title:         title,
		Description:   description,
		Location:      location,
		Category:      strings.TrimSpace(draft.Category),
		SubmittedBy:   submittedBy,
		SubmittedAt:   p.now().UTC(),
		Photos:        draft.Photos,
		ContactNumber: strings.TrimSpace(draft.ContactNumber),
		Status:        models.StatusPending,
		IsAnalyzing:   true,
	}

	if err := p.store.CreateComplaint(ctx, c); err != nil {
		return nil, p.persistence("submit", c.ID, err)
	}
	p.metrics.ComplaintsSubmitted.Inc()
	p.metrics.MutationsTotal.WithLabelValues("submit", metrics.ResultOK).Inc()
	p.record(ctx, c.ID, models.ActionComplaintCreated, submittedBy, fmt.Sprintf("Complaint submitted: %s", title))

	p.logger.Info().Str("complaint_id", c.ID).Str("category", c.Category).Msg("complaint submitted")

	p.claim(c.ID)
	p.schedule(ctx, c.ID, analysis.Request{
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		Category:    c.Category,
	})

	out := c.Clone()
	return &out, nil
}

func (p *Pipeline) schedule(ctx context.Context, id string, req analysis.Request) {
	bg := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release(id)

		actx, cancel := context.WithTimeout(bg, p.analysisTimeout)
		start := p.now()
		result, err := p.analyzer.Analyze(actx, req)
		cancel()
		p.metrics.AnalysisSeconds.Observe(time.Since(start).Seconds())

		if err != nil {
			p.logger.Warn().Err(err).Str("complaint_id", id).Msg("analysis failed, complaint needs manual review")
			result = nil
		}
		if err := p.AttachAnalysis(bg, id, result); err != nil {
			p.logger.Error().Err(err).Str("complaint_id", id).Msg("failed to attach analysis")
		}
	}()
}

// AttachAnalysis resolves the analyzing state of a complaint. A nil result
// leaves the complaint without analysis for manual review.
func (p *Pipeline) AttachAnalysis(ctx context.Context, id string, result *models.AIAnalysis) error {
	done := false
	update := models.ComplaintUpdate{
		IsAnalyzing: &done,
		AIAnalysis:  result,
		SetAnalysis: true,
	}
	if err := p.store.UpdateComplaint(ctx, id, update); err != nil {
		return p.persistence("attachAnalysis", id, err)
	}

	switch {
	case result == nil:
		p.metrics.AnalysisTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		p.record(ctx, id, models.ActionAnalysisFailed, "System", "AI analysis unavailable. Manual review required.")
	case result.IsFallback():
		p.metrics.AnalysisTotal.WithLabelValues(metrics.OutcomeFallback).Inc()
		p.record(ctx, id, models.ActionAnalysisAttached, "System", "Fallback analysis attached. Manual review required.")
	default:
		p.metrics.AnalysisTotal.WithLabelValues(metrics.OutcomeAnalyzed).Inc()
		p.record(ctx, id, models.ActionAnalysisAttached, "System",
			fmt.Sprintf("AI priority %d (%s)", result.PriorityScore, result.UrgencyLevel))
	}
	return nil
}

// UpdateStatus moves a complaint to status. Any status may follow any other.
func (p *Pipeline) UpdateStatus(ctx context.Context, session *auth.Session, id string, status models.ComplaintStatus) error {
	const op = "updateStatus"
	if err := p.authorize(op, session); err != nil {
		return err
	}
	if !status.IsValid() {
		return p.invalid(op, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)})
	}

	current, err := p.store.GetComplaint(ctx, id)
	if err != nil {
		return p.persistence(op, id, err)
	}
	if err := p.store.UpdateComplaint(ctx, id, models.ComplaintUpdate{Status: &status}); err != nil {
		return p.persistence(op, id, err)
	}

	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
	p.record(ctx, id, models.ActionStatusChange, session.Actor(),
		fmt.Sprintf("Status changed from %s to %s", current.Status, status))
	return nil
}

// ToggleEscalation flips the escalation flag and returns the new value.
func (p *Pipeline) ToggleEscalation(ctx context.Context, session *auth.Session, id string) (bool, error) {
	const op = "toggleEscalation"
	if err := p.authorize(op, session); err != nil {
		return false, err
	}

	current, err := p.store.GetComplaint(ctx, id)
	if err != nil {
		return false, p.persistence(op, id, err)
	}
	next := !current.IsEscalated
	if err := p.store.UpdateComplaint(ctx, id, models.ComplaintUpdate{IsEscalated: &next}); err != nil {
		return false, p.persistence(op, id, err)
	}

	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
	if next {
		p.record(ctx, id, models.ActionEscalation, session.Actor(), "Complaint escalated for higher-authority review")
	} else {
		p.record(ctx, id, models.ActionDeEscalation, session.Actor(), "Escalation removed")
	}
	return next, nil
}

// UpdateFields edits title, category, location or contact number.
func (p *Pipeline) UpdateFields(ctx context.Context, session *auth.Session, id string, fields FieldUpdate) error {
	const op = "updateFields"
	if err := p.authorize(op, session); err != nil {
		return err
	}

	update := models.ComplaintUpdate{ContactNumber: trimmed(fields.ContactNumber), Category: trimmed(fields.Category)}
	for _, f := range []struct {
		name string
		in   *string
		out  **string
	}{
		{"title", fields.Title, &update.Title},
		{"location", fields.Location, &update.Location},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return p.invalid(op, &ValidationError{Field: f.name, Message: "must not be empty"})
		}
		*f.out = &v
	}
	if update.IsEmpty() {
		return p.invalid(op, &ValidationError{Field: "fields", Message: "nothing to update"})
	}

	current, err := p.store.GetComplaint(ctx, id)
	if err != nil {
		return p.persistence(op, id, err)
	}
	if err := p.store.UpdateComplaint(ctx, id, update); err != nil {
		return p.persistence(op, id, err)
	}

	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
	p.record(ctx, id, models.ActionFieldUpdate, session.Actor(), describeFieldChanges(current, update))
	return nil
}

// AddNote appends an internal note visible to officials only.
func (p *Pipeline) AddNote(ctx context.Context, session *auth.Session, id, text string) (*models.InternalNote, error) {
	const op = "addNote"
	if err := p.authorize(op, session); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, p.invalid(op, &ValidationError{Field: "text"})
	}

	note := &models.InternalNote{
		ComplaintID: id,
		Author:      session.Actor(),
		Text:        text,
		Timestamp:   p.now().UTC(),
	}
	if err := p.store.AddInternalNote(ctx, note); err != nil {
		return nil, p.persistence(op, id, err)
	}

	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
	p.record(ctx, id, models.ActionNoteAdded, session.Actor(), "Internal note added")
	return note, nil
}

// Reanalyze discards the current analysis and schedules a fresh one.
func (p *Pipeline) Reanalyze(ctx context.Context, session *auth.Session, id string) error {
	const op = "reanalyze"
	if err := p.authorize(op, session); err != nil {
		return err
	}

	if !p.claim(id) {
		return ErrAnalysisInProgress
	}

	current, err := p.store.GetComplaint(ctx, id)
	if err != nil {
		p.release(id)
		return p.persistence(op, id, err)
	}
	if current.IsAnalyzing {
		p.release(id)
		return ErrAnalysisInProgress
	}

	analyzing := true
	if err := p.store.UpdateComplaint(ctx, id, models.ComplaintUpdate{
		IsAnalyzing: &analyzing,
		SetAnalysis: true,
	}); err != nil {
		p.release(id)
		return p.persistence(op, id, err)
	}

	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
	p.record(ctx, id, models.ActionReanalysis, session.Actor(), "Fresh AI analysis requested")
	p.schedule(ctx, id, analysis.Request{
		Title:       current.Title,
		Description: current.Description,
		Location:    current.Location,
		Category:    current.Category,
	})
	return nil
}

// claim marks an analysis run for id as in flight. It reports false when one
// already is; the run's goroutine releases the claim after attaching.
func (p *Pipeline) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

func (p *Pipeline) authorize(op string, session *auth.Session) error {
	if !session.Authenticated() {
		p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultUnauthorized).Inc()
		return &AuthorizationError{Op: op, Reason: "no authenticated session"}
	}
	if !session.CanTriage() {
		p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultUnauthorized).Inc()
		return &AuthorizationError{Op: op, Reason: fmt.Sprintf("role %s may not triage complaints", session.Role()), Authenticated: true}
	}
	return nil
}

func (p *Pipeline) invalid(op string, err *ValidationError) error {
	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultInvalid).Inc()
	return err
}

func (p *Pipeline) persistence(op, id string, err error) error {
	p.metrics.MutationsTotal.WithLabelValues(op, metrics.ResultError).Inc()
	if !errors.Is(err, storage.ErrNotFound) {
		p.logger.Error().Err(err).Str("op", op).Str("complaint_id", id).Msg("store write failed")
	}
	return &PersistenceError{Op: op, Err: err}
}

func (p *Pipeline) record(ctx context.Context, id string, action models.AuditAction, author, details string) {
	if p.audit == nil {
		return
	}
	p.audit.RecordComplaint(ctx, id, action, author, details)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func describeFieldChanges(before *models.Complaint, u models.ComplaintUpdate) string {
	var parts []string
	add := func(name, old string, next *string) {
		if next != nil && *next != old {
			parts = append(parts, fmt.Sprintf("%s: %q to %q", name, old, *next))
		}
	}
	add("title", before.Title, u.Title)
	add("category", before.Category, u.Category)
	add("location", before.Location, u.Location)
	add("contact number", before.ContactNumber, u.ContactNumber)
	if len(parts) == 0 {
		return "Fields saved without changes"
	}
	return "Updated " + strings.Join(parts, ", ")
}
