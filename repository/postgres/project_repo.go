package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

const projectColumns = `
	id, slug, title, description, notes, status, deal_type,
	total_amount, amount_paid, term_months, monthly_payment,
	grace_period_months, grace_period_started_at, missed_payments,
	provider_customer_id, provider_subscription_id,
	client_id, target_completion_date, created_at, updated_at
`

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository returns a Postgres-backed implementation of ProjectRepository.
func NewProjectRepository(pool *pgxpool.Pool) repository.ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

func (r *projectRepository) GetBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE slug = $1`
	return scanProject(r.pool.QueryRow(ctx, query, slug))
}

func (r *projectRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE provider_subscription_id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, subscriptionID))
}

func (r *projectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM projects WHERE slug = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *projectRepository) List(ctx context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	const query = `
	SELECT ` + projectColumns + `
	FROM projects
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
	ORDER BY updated_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, string(filter.Status), filter.Search, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	if project == nil {
		return nil, domain.ErrInvalidPayload
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO projects (
		id, slug, title, description, notes, status, deal_type,
		total_amount, amount_paid, term_months, monthly_payment,
		grace_period_months, missed_payments, client_id, target_completion_date
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, 0, $12, $13)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		project.ID,
		project.Slug,
		project.Title,
		project.Description,
		project.Notes,
		string(project.Status),
		string(project.DealType),
		project.TotalAmount,
		project.TermMonths,
		project.MonthlyPayment,
		project.GracePeriodMonths,
		nullStr(project.ClientID),
		nullTime(project.TargetCompletionDate),
	).Scan(&project.CreatedAt, &project.UpdatedAt); err != nil {
		return nil, err
	}

	return project, nil
}

func (r *projectRepository) Update(ctx context.Context, id string, update repository.ProjectUpdate) (*domain.Project, error) {
	const query = `
	UPDATE projects
	SET title = COALESCE($2, title),
		description = COALESCE($3, description),
		notes = COALESCE($4, notes),
		total_amount = COALESCE($5, total_amount),
		term_months = COALESCE($6, term_months),
		grace_period_months = COALESCE($7, grace_period_months),
		client_id = COALESCE($8, client_id),
		target_completion_date = COALESCE($9, target_completion_date),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + projectColumns

	return scanProject(r.pool.QueryRow(ctx, query,
		id,
		update.Title,
		update.Description,
		update.Notes,
		update.TotalAmount,
		update.TermMonths,
		update.GracePeriodMonths,
		update.ClientID,
		update.TargetCompletionDate,
	))
}

func (r *projectRepository) ApplyLifecycle(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE projects
	SET status = $2,
		grace_period_started_at = $3,
		missed_payments = $4,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		project.ID,
		string(project.Status),
		nullTime(project.GracePeriodStartedAt),
		project.MissedPayments,
	).Scan(&project.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProjectNotFound
		}
		return err
	}
	return nil
}

func (r *projectRepository) IncrementAmountPaid(ctx context.Context, id string, delta int64) (int64, error) {
	const query = `
	UPDATE projects
	SET amount_paid = amount_paid + $2, updated_at = NOW()
	WHERE id = $1
	RETURNING amount_paid
	`
	var total int64
	if err := r.pool.QueryRow(ctx, query, id, delta).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProjectNotFound
		}
		return 0, err
	}
	return total, nil
}

func (r *projectRepository) SetAmountPaid(ctx context.Context, id string, amount int64) error {
	const query = `UPDATE projects SET amount_paid = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, amount)
}

func (r *projectRepository) IncrementMissedPayments(ctx context.Context, id string) (int, error) {
	const query = `
	UPDATE projects
	SET missed_payments = missed_payments + 1, updated_at = NOW()
	WHERE id = $1
	RETURNING missed_payments
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProjectNotFound
		}
		return 0, err
	}
	return count, nil
}

func (r *projectRepository) ResetMissedPayments(ctx context.Context, id string) error {
	const query = `UPDATE projects SET missed_payments = 0, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *projectRepository) SetGracePeriodMonths(ctx context.Context, id string, months int) error {
	const query = `UPDATE projects SET grace_period_months = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, months)
}

func (r *projectRepository) SetSubscription(ctx context.Context, id, customerID, subscriptionID string) error {
	const query = `
	UPDATE projects
	SET provider_customer_id = $2, provider_subscription_id = $3, updated_at = NOW()
	WHERE id = $1
	`
	return r.exec(ctx, query, id, nullStr(customerID), nullStr(subscriptionID))
}

func (r *projectRepository) ClearSubscription(ctx context.Context, id string) error {
	const query = `UPDATE projects SET provider_subscription_id = NULL, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *projectRepository) ListPausedWithGrace(ctx context.Context) ([]domain.Project, error) {
	const query = `
	SELECT ` + projectColumns + `
	FROM projects
	WHERE status = $1 AND grace_period_started_at IS NOT NULL
	ORDER BY grace_period_started_at ASC
	`
	rows, err := r.pool.Query(ctx, query, string(domain.StatusPaused))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *projectRepository) ListActiveInstallments(ctx context.Context) ([]domain.Project, error) {
	const query = `
	SELECT ` + projectColumns + `
	FROM projects
	WHERE status = $1 AND deal_type = $2 AND provider_subscription_id IS NOT NULL
	ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, string(domain.StatusActive), string(domain.DealInstallment))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *projectRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func scanProject(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Project, error) {
	var p domain.Project
	var (
		status, dealType                     string
		graceStarted, targetCompletion       *time.Time
		customerID, subscriptionID, clientID *string
	)

	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Description,
		&p.Notes,
		&status,
		&dealType,
		&p.TotalAmount,
		&p.AmountPaid,
		&p.TermMonths,
		&p.MonthlyPayment,
		&p.GracePeriodMonths,
		&graceStarted,
		&p.MissedPayments,
		&customerID,
		&subscriptionID,
		&clientID,
		&targetCompletion,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}

	p.Status = domain.Status(status)
	p.DealType = domain.DealType(dealType)
	p.GracePeriodStartedAt = graceStarted
	p.TargetCompletionDate = targetCompletion
	p.ProviderCustomerID = strOrEmpty(customerID)
	p.ProviderSubscriptionID = strOrEmpty(subscriptionID)
	p.ClientID = strOrEmpty(clientID)

	return &p, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
