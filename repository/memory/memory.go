// Package memory provides map-backed repository implementations. They honor
// the same contracts as the Postgres backend and are used by tests and local
// tooling that run without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

// ProjectRepo is an in-memory ProjectRepository.
type ProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
}

func NewProjectRepo() *ProjectRepo {
	return &ProjectRepo{projects: make(map[string]*domain.Project)}
}

// Seed inserts a project as-is, bypassing creation defaults.
func (r *ProjectRepo) Seed(p *domain.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.projects[p.ID] = &cp
}

func (r *ProjectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProjectRepo) GetBySlug(_ context.Context, slug string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrProjectNotFound
}

func (r *ProjectRepo) GetBySubscriptionID(_ context.Context, subscriptionID string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subscriptionID == "" {
		return nil, domain.ErrProjectNotFound
	}
	for _, p := range r.projects {
		if p.ProviderSubscriptionID == subscriptionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrProjectNotFound
}

func (r *ProjectRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProjectRepo) List(_ context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Project
	for _, p := range r.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.Title), needle) &&
				!strings.Contains(strings.ToLower(p.Description), needle) {
				continue
			}
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *ProjectRepo) Create(_ context.Context, project *domain.Project) (*domain.Project, error) {
	if project == nil {
		return nil, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	cp := *project
	r.projects[project.ID] = &cp
	return project, nil
}

func (r *ProjectRepo) Update(_ context.Context, id string, update repository.ProjectUpdate) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Notes != nil {
		p.Notes = *update.Notes
	}
	if update.TotalAmount != nil {
		p.TotalAmount = *update.TotalAmount
	}
	if update.TermMonths != nil {
		p.TermMonths = *update.TermMonths
	}
	if update.GracePeriodMonths != nil {
		p.GracePeriodMonths = *update.GracePeriodMonths
	}
	if update.ClientID != nil {
		p.ClientID = *update.ClientID
	}
	if update.TargetCompletionDate != nil {
		t := *update.TargetCompletionDate
		p.TargetCompletionDate = &t
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (r *ProjectRepo) ApplyLifecycle(_ context.Context, project *domain.Project) error {
	if project == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[project.ID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Status = project.Status
	p.GracePeriodStartedAt = project.GracePeriodStartedAt
	p.MissedPayments = project.MissedPayments
	p.UpdatedAt = time.Now()
	project.UpdatedAt = p.UpdatedAt
	return nil
}

func (r *ProjectRepo) IncrementAmountPaid(_ context.Context, id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return 0, domain.ErrProjectNotFound
	}
	p.AmountPaid += delta
	p.UpdatedAt = time.Now()
	return p.AmountPaid, nil
}

func (r *ProjectRepo) SetAmountPaid(_ context.Context, id string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.AmountPaid = amount
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepo) IncrementMissedPayments(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return 0, domain.ErrProjectNotFound
	}
	p.MissedPayments++
	p.UpdatedAt = time.Now()
	return p.MissedPayments, nil
}

func (r *ProjectRepo) ResetMissedPayments(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.MissedPayments = 0
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepo) SetGracePeriodMonths(_ context.Context, id string, months int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.GracePeriodMonths = months
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepo) SetSubscription(_ context.Context, id, customerID, subscriptionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.ProviderCustomerID = customerID
	p.ProviderSubscriptionID = subscriptionID
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepo) ClearSubscription(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.ProviderSubscriptionID = ""
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepo) ListPausedWithGrace(_ context.Context) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Project
	for _, p := range r.projects {
		if p.Status == domain.StatusPaused && p.GracePeriodStartedAt != nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GracePeriodStartedAt.Before(*out[j].GracePeriodStartedAt)
	})
	return out, nil
}

func (r *ProjectRepo) ListActiveInstallments(_ context.Context) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Project
	for _, p := range r.projects {
		if p.Status == domain.StatusActive && p.DealType == domain.DealInstallment && p.ProviderSubscriptionID != "" {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ repository.ProjectRepository = (*ProjectRepo)(nil)

// PaymentRepo is an in-memory PaymentRepository.
type PaymentRepo struct {
	mu        sync.Mutex
	payments  []*domain.Payment
	byInvoice map[string]*domain.Payment
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{byInvoice: make(map[string]*domain.Payment)}
}

func (r *PaymentRepo) UpsertByInvoiceID(_ context.Context, payment *domain.Payment) (bool, error) {
	if payment == nil || payment.ProviderInvoiceID == "" {
		return false, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byInvoice[payment.ProviderInvoiceID]; ok {
		existing.Status = payment.Status
		existing.PaidAt = payment.PaidAt
		*payment = *existing
		return false, nil
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now()
	cp := *payment
	r.payments = append(r.payments, &cp)
	r.byInvoice[payment.ProviderInvoiceID] = &cp
	return true, nil
}

func (r *PaymentRepo) Create(_ context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if payment == nil {
		return nil, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now()
	cp := *payment
	r.payments = append(r.payments, &cp)
	if payment.ProviderInvoiceID != "" {
		r.byInvoice[payment.ProviderInvoiceID] = &cp
	}
	return payment, nil
}

func (r *PaymentRepo) ListByProject(_ context.Context, projectID string) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	return out, nil
}

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// ActivityRepo is an in-memory ActivityRepository.
type ActivityRepo struct {
	mu      sync.Mutex
	Entries []domain.ActivityLog
}

func NewActivityRepo() *ActivityRepo {
	return &ActivityRepo{}
}

func (r *ActivityRepo) Append(_ context.Context, entry *domain.ActivityLog) error {
	if entry == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	r.Entries = append(r.Entries, *entry)
	return nil
}

func (r *ActivityRepo) ListByProject(_ context.Context, projectID string, limit int) ([]domain.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActivityLog
	for i := len(r.Entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.Entries[i].ProjectID == projectID {
			out = append(out, r.Entries[i])
		}
	}
	return out, nil
}

var _ repository.ActivityRepository = (*ActivityRepo)(nil)

// NotificationRepo is an in-memory NotificationRepository.
type NotificationRepo struct {
	mu    sync.Mutex
	Items []*domain.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{}
}

func (r *NotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	if notification == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now()
	cp := *notification
	r.Items = append(r.Items, &cp)
	return nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID string, limit, offset int) (*repository.NotificationPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := &repository.NotificationPage{}
	var mine []*domain.Notification
	for i := len(r.Items) - 1; i >= 0; i-- { // newest first
		if r.Items[i].UserID == userID {
			mine = append(mine, r.Items[i])
		}
	}
	page.Total = len(mine)
	for _, n := range mine {
		if !n.Read {
			page.UnreadCount++
		}
	}
	for i := offset; i < len(mine) && (limit <= 0 || len(page.Items) < limit); i++ {
		page.Items = append(page.Items, *mine[i])
	}
	return page, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	count := 0
	for _, n := range r.Items {
		if n.UserID == userID && idSet[n.ID] && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.Items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

// HandoffRepo is an in-memory HandoffRepository.
type HandoffRepo struct {
	mu    sync.Mutex
	items map[string]*domain.HandoffItem
}

func NewHandoffRepo() *HandoffRepo {
	return &HandoffRepo{items: make(map[string]*domain.HandoffItem)}
}

func (r *HandoffRepo) GetItem(_ context.Context, itemID string) (*domain.HandoffItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, domain.ErrHandoffItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *HandoffRepo) ListByProject(_ context.Context, projectID string) ([]domain.HandoffItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HandoffItem
	for _, item := range r.items {
		if item.ProjectID == projectID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *HandoffRepo) HasItems(_ context.Context, projectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ProjectID == projectID {
			return true, nil
		}
	}
	return false, nil
}

func (r *HandoffRepo) CreateItems(_ context.Context, items []domain.HandoffItem) error {
	if len(items) == 0 {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].CreatedAt = time.Now()
		cp := items[i]
		r.items[cp.ID] = &cp
	}
	return nil
}

func (r *HandoffRepo) SetCompleted(_ context.Context, itemID string, completed bool) (*domain.HandoffItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, domain.ErrHandoffItemNotFound
	}
	item.Completed = completed
	if completed {
		now := time.Now()
		item.CompletedAt = &now
	} else {
		item.CompletedAt = nil
	}
	cp := *item
	return &cp, nil
}

var _ repository.HandoffRepository = (*HandoffRepo)(nil)

// UserRepo is an in-memory UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*domain.User)}
}

func (r *UserRepo) Seed(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	r.users[u.ID] = &cp
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepo) UpsertByExternalID(_ context.Context, user *domain.User) error {
	if user == nil || user.ExternalID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ExternalID == user.ExternalID {
			u.Email = user.Email
			u.Name = user.Name
			u.Role = user.Role
			u.UpdatedAt = time.Now()
			*user = *u
			return nil
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleClient
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

var _ repository.UserRepository = (*UserRepo)(nil)
