package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/format"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var leadTracer = otel.Tracer("service/leads")

// LeadsKey is the cache key of the self-contained lead log.
const LeadsKey = "phuket-leads"

const notifyTimeout = 5 * time.Second

// ============================================================
// LeadIntake: contact form submissions
// ============================================================

// LeadIntake validates and persists contact form submissions.
type LeadIntake struct {
	store        port.LeadStore
	notifier     port.LeadNotifier
	contactPhone string
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewLeadIntake creates the intake. notifier may be nil.
func NewLeadIntake(store port.LeadStore, notifier port.LeadNotifier, contactPhone string, metrics *observability.Metrics, logger *zap.Logger) *LeadIntake {
	return &LeadIntake{
		store:        store,
		notifier:     notifier,
		contactPhone: contactPhone,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Validate checks every field of d and returns all failures at once.
func (s *LeadIntake) Validate(d domain.LeadDraft) domain.FieldErrors {
	errs := domain.FieldErrors{}

	if strings.TrimSpace(d.Name) == "" {
		errs["name"] = "Name ist erforderlich"
	}

	phone := strings.TrimSpace(d.Phone)
	switch {
	case phone == "":
		errs["phone"] = "Telefonnummer ist erforderlich"
	case !format.IsValidPhone(phone):
		errs["phone"] = "Bitte gültige Telefonnummer eingeben"
	}

	if !d.DsgvoConsent {
		errs["dsgvoConsent"] = "Zustimmung erforderlich"
	}

	if email := strings.TrimSpace(d.Email); email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			errs["email"] = "Bitte gültige E-Mail-Adresse eingeben"
		}
	}
	if d.Goal != "" && !d.Goal.Valid() {
		errs["goal"] = "Ungültige Auswahl"
	}
	if d.Horizon != "" && !d.Horizon.Valid() {
		errs["horizon"] = "Ungültige Auswahl"
	}
	if d.PreferredCategory != "" && !d.PreferredCategory.Valid() {
		errs["preferredCategory"] = "Ungültige Auswahl"
	}
	if d.Budget != "" && !slices.Contains(domain.BudgetBrackets, d.Budget) {
		errs["budget"] = "Ungültige Auswahl"
	}

	return errs
}

// Submit validates d and persists exactly one lead. Nothing is written when
// validation fails. A failing notifier never fails the submission.
func (s *LeadIntake) Submit(ctx context.Context, d domain.LeadDraft) (*domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadIntake.Submit")
	defer span.End()

	if errs := s.Validate(d); !errs.OK() {
		s.metrics.IncrLead("rejected")
		return nil, &domain.ErrFieldValidation{Fields: errs}
	}

	source := strings.TrimSpace(d.Source)
	if source == "" {
		source = domain.DefaultLeadSource
	}
	lead := &domain.Lead{
		Name:              strings.TrimSpace(d.Name),
		Phone:             strings.TrimSpace(d.Phone),
		Email:             strings.TrimSpace(d.Email),
		Budget:            d.Budget,
		Goal:              d.Goal,
		Horizon:           d.Horizon,
		PreferredCategory: d.PreferredCategory,
		DsgvoConsent:      d.DsgvoConsent,
		MarketingConsent:  d.MarketingConsent,
		Source:            source,
		CreatedAt:         s.now().UTC(),
	}

	start := time.Now()
	if err := s.store.CreateLead(ctx, lead); err != nil {
		s.metrics.IncrLead("failed")
		s.logger.Error("lead submission failed", zap.Error(err))
		return nil, fmt.Errorf("submit lead: %w", err)
	}
	s.metrics.RecordRequestDuration("lead_submit", time.Since(start))
	s.metrics.IncrLead("submitted")
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	s.logger.Info("lead submitted",
		zap.String("lead_id", lead.ID),
		zap.String("source", lead.Source),
		zap.Bool("marketing_consent", lead.MarketingConsent),
	)

	s.notify(ctx, lead)
	return lead, nil
}

func (s *LeadIntake) notify(ctx context.Context, lead *domain.Lead) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event := domain.LeadSubmittedEvent{
		LeadID:            lead.ID,
		Name:              lead.Name,
		Phone:             lead.Phone,
		Email:             lead.Email,
		Budget:            lead.Budget,
		PreferredCategory: lead.PreferredCategory,
		MarketingConsent:  lead.MarketingConsent,
		Source:            lead.Source,
		CreatedAt:         lead.CreatedAt.Format(time.RFC3339),
	}
	if err := s.notifier.PublishLeadSubmitted(ctx, event); err != nil {
		s.metrics.IncrExternalError("queue")
		s.logger.Warn("lead notification failed", zap.String("lead_id", lead.ID), zap.Error(err))
	}
}

// WhatsAppLink returns the contact deep link. With a name the greeting
// introduces the visitor.
func (s *LeadIntake) WhatsAppLink(name string) string {
	text := "Hallo, ich interessiere mich für Immobilien auf Phuket."
	if name = strings.TrimSpace(name); name != "" {
		text = fmt.Sprintf("Hallo, mein Name ist %s. Ich interessiere mich für Immobilien auf Phuket.", name)
	}
	return format.WhatsAppLink(s.contactPhone, text)
}

// InquiryLink returns the deep link asking about one property.
func (s *LeadIntake) InquiryLink(p domain.Property) string {
	text := fmt.Sprintf("Hallo, ich interessiere mich für das Objekt \"%s\" in %s. Bitte senden Sie mir weitere Informationen.", p.ProjectName, p.Area)
	return format.WhatsAppLink(s.contactPhone, text)
}

// ============================================================
// LeadInbox: admin-only live lead view
// ============================================================

// LeadInboxSnapshot is the state of the inbox.
type LeadInboxSnapshot struct {
	Leads  []domain.Lead `json:"leads"`
	Active bool          `json:"active"`
	Error  string        `json:"error,omitempty"`
}

// LeadInbox follows the lead collection while an authorized session exists.
// Its error state is independent of the catalog subscription.
type LeadInbox struct {
	feed    port.LeadFeed
	metrics *observability.Metrics
	logger  *zap.Logger

	opMu sync.Mutex // serializes Start and Stop

	mu     sync.RWMutex
	leads  []domain.Lead
	err    string
	cancel port.CancelFunc
	gen    uint64
}

// NewLeadInbox creates an inactive inbox. feed may be nil, in which case
// Start records that leads are unavailable.
func NewLeadInbox(feed port.LeadFeed, metrics *observability.Metrics, logger *zap.Logger) *LeadInbox {
	return &LeadInbox{feed: feed, metrics: metrics, logger: logger}
}

// Start subscribes to the lead collection. It is a no-op while active.
func (b *LeadInbox) Start(ctx context.Context) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return nil
	}
	b.gen++
	gen := b.gen
	b.err = ""
	b.mu.Unlock()

	if b.feed == nil {
		err := &domain.ErrNotConfigured{Component: "lead feed"}
		b.setError(gen, err)
		return err
	}

	cancel, err := b.feed.WatchLeads(context.WithoutCancel(ctx),
		func(leads []domain.Lead) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.gen != gen {
				return
			}
			if leads == nil {
				leads = []domain.Lead{}
			}
			b.leads = leads
			b.err = ""
		},
		func(err error) { b.setError(gen, err) },
	)
	if err != nil {
		b.setError(gen, err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		go cancel()
		return nil
	}
	b.cancel = cancel
	b.logger.Info("lead inbox started")
	return nil
}

func (b *LeadInbox) setError(gen uint64, err error) {
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.err = err.Error()
	b.mu.Unlock()

	b.metrics.IncrSubscriptionError("leads")
	b.logger.Warn("lead inbox: subscription error", zap.Error(err))
}

// Stop cancels the subscription and forgets the held leads.
func (b *LeadInbox) Stop() {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	b.gen++
	prev := b.cancel
	b.cancel = nil
	b.leads = nil
	b.err = ""
	b.mu.Unlock()

	if prev != nil {
		prev()
		b.logger.Info("lead inbox stopped")
	}
}

// Snapshot returns the held leads, newest first.
func (b *LeadInbox) Snapshot() LeadInboxSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	leads := b.leads
	if leads == nil {
		leads = []domain.Lead{}
	}
	return LeadInboxSnapshot{Leads: leads, Active: b.cancel != nil, Error: b.err}
}

// ============================================================
// LocalLeadLog: self-contained lead persistence
// ============================================================

// LocalLeadLog stores leads in the key-value cache and serves them to the
// inbox. It implements port.LeadStore and port.LeadFeed.
type LocalLeadLog struct {
	kv     port.KeyValueStore
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[int]port.LeadSnapshotFunc
	nextSub int
}

// NewLocalLeadLog creates a lead log on kv.
func NewLocalLeadLog(kv port.KeyValueStore, logger *zap.Logger) *LocalLeadLog {
	return &LocalLeadLog{kv: kv, logger: logger, subs: make(map[int]port.LeadSnapshotFunc)}
}

func (l *LocalLeadLog) loadLocked(ctx context.Context) ([]domain.Lead, error) {
	raw, found, err := l.kv.Get(ctx, LeadsKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.Lead{}, nil
	}
	var leads []domain.Lead
	if err := json.Unmarshal([]byte(raw), &leads); err != nil {
		return nil, fmt.Errorf("decode lead log: %w", err)
	}
	return leads, nil
}

// CreateLead implements port.LeadStore.
func (l *LocalLeadLog) CreateLead(ctx context.Context, lead *domain.Lead) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	leads, err := l.loadLocked(ctx)
	if err != nil {
		return err
	}
	lead.ID = uuid.NewString()
	leads = append([]domain.Lead{*lead}, leads...)

	raw, err := json.Marshal(leads)
	if err != nil {
		return err
	}
	if err := l.kv.Set(ctx, LeadsKey, string(raw)); err != nil {
		return err
	}
	for _, fn := range l.subs {
		fn(slices.Clone(leads))
	}
	return nil
}

// WatchLeads implements port.LeadFeed. The first snapshot is delivered
// before WatchLeads returns.
func (l *LocalLeadLog) WatchLeads(ctx context.Context, onSnapshot port.LeadSnapshotFunc, onError port.ErrorFunc) (port.CancelFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	leads, err := l.loadLocked(ctx)
	if err != nil {
		onError(err)
		leads = []domain.Lead{}
	}
	slices.SortStableFunc(leads, func(a, b domain.Lead) int { return b.CreatedAt.Compare(a.CreatedAt) })

	id := l.nextSub
	l.nextSub++
	l.subs[id] = onSnapshot
	onSnapshot(leads)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}, nil
}
