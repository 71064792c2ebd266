package report_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/events"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

// mockReportRepository хранит копии заявок и меняет статус только через CAS,
// как это делает Postgres-реализация.
type mockReportRepository struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*entity.Report
}

func newMockReportRepository() *mockReportRepository {
	return &mockReportRepository{reports: make(map[uuid.UUID]*entity.Report)}
}

func clone(r *entity.Report) *entity.Report {
	c := *r
	c.Images = append([]string{}, r.Images...)
	c.Videos = append([]string{}, r.Videos...)
	c.Quotations = append([]entity.Quotation{}, r.Quotations...)
	c.Reviews = append([]entity.Review{}, r.Reviews...)
	c.MediaWarnings = append([]string{}, r.MediaWarnings...)
	return &c
}

func (m *mockReportRepository) put(r *entity.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = clone(r)
}

func (m *mockReportRepository) status(id uuid.UUID) valueobject.ReportStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id].Status
}

func (m *mockReportRepository) Create(_ context.Context, r *entity.Report) error {
	m.put(r)
	return nil
}

func (m *mockReportRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, apperror.ErrReportNotFound
	}
	return clone(r), nil
}

func (m *mockReportRepository) FindByFilter(_ context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*entity.Report{}
	for _, r := range m.reports {
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		if filter.OwnerID != nil && r.OwnerID != *filter.OwnerID {
			continue
		}
		result = append(result, clone(r))
	}
	return result, nil
}

func (m *mockReportRepository) FindScheduled(_ context.Context) ([]*entity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*entity.Report{}
	for _, r := range m.reports {
		if r.Status == valueobject.ReportStatusAccepted && r.AppointmentAt != nil {
			result = append(result, clone(r))
		}
	}
	return result, nil
}

func (m *mockReportRepository) AppendQuotation(_ context.Context, q *entity.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[q.ReportID]
	if !ok {
		return apperror.ErrReportNotFound
	}
	if r.Status != valueobject.ReportStatusPending {
		return apperror.Conflict("not pending")
	}
	r.Quotations = append(r.Quotations, *q)
	return nil
}

func (m *mockReportRepository) AcceptQuotation(_ context.Context, reportID, specialistID uuid.UUID, appt entity.Appointment, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return apperror.ErrReportNotFound
	}
	if r.Status != valueobject.ReportStatusPending {
		return apperror.Conflict("not pending")
	}
	if _, ok := r.QuotationFrom(specialistID); !ok {
		return apperror.ErrQuotationNotFound
	}
	r.Status = valueobject.ReportStatusAccepted
	r.SelectedQuotation = &specialistID
	r.Appointment = &appt
	r.AppointmentAt = at
	return nil
}

func (m *mockReportRepository) UpdateStatus(_ context.Context, reportID uuid.UUID, from, to valueobject.ReportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return apperror.ErrReportNotFound
	}
	if r.Status != from {
		return apperror.Conflict("status changed")
	}
	r.Status = to
	return nil
}

func (m *mockReportRepository) UpdateMedia(_ context.Context, reportID uuid.UUID, images, videos, warnings []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return apperror.ErrReportNotFound
	}
	r.Images, r.Videos, r.MediaWarnings = images, videos, warnings
	return nil
}

func (m *mockReportRepository) AddReview(_ context.Context, rv *entity.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[rv.ReportID]
	if !ok {
		return apperror.ErrReportNotFound
	}
	if r.Status != valueobject.ReportStatusCompleted {
		return apperror.Conflict("not completed")
	}
	r.Reviews = append(r.Reviews, *rv)
	return nil
}

type mockUserRepository struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*entity.User
	tokens map[uuid.UUID]string
}

func newMockUserRepository(users ...*entity.User) *mockUserRepository {
	m := &mockUserRepository{
		users:  make(map[uuid.UUID]*entity.User),
		tokens: make(map[uuid.UUID]string),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) ListSpecialists(_ context.Context) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.User
	for _, u := range m.users {
		if u.IsSpecialist() {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserRepository) SetVerificationToken(_ context.Context, userID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return apperror.ErrUserNotFound
	}
	m.tokens[userID] = token
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type stubGeocoder struct {
	err     error
	regions []string
}

func (g *stubGeocoder) Resolve(_ context.Context, _, region string) (valueobject.Coordinates, error) {
	g.regions = append(g.regions, region)
	if g.err != nil {
		return valueobject.Coordinates{}, g.err
	}
	return valueobject.Coordinates{Latitude: 51.5, Longitude: -0.14}, nil
}

type stubMediaQueue struct {
	full bool
	jobs []uuid.UUID
}

func (q *stubMediaQueue) Enqueue(reportID uuid.UUID, _, _ []string) bool {
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, reportID)
	return true
}

var errGeocodeDown = errors.New("geocoder unavailable")

func newUser(t valueobject.UserType) *entity.User {
	return &entity.User{
		ID:         uuid.New(),
		Email:      uuid.NewString()[:8] + "@example.com",
		FirstName:  "Test",
		UserType:   t,
		IsVerified: true,
	}
}

func validReportInput() entity.ReportInput {
	return entity.ReportInput{
		CarMaker:    "Ford",
		CarModel:    "Focus",
		CarYear:     2015,
		IssueType:   "brakes",
		Description: "Squeaking when braking",
		Images:      []string{"https://example.com/a.jpg"},
		Urgency:     "urgent",
		Location:    "SW1A 1AA",
	}
}
