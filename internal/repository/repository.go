// Package repository provides policy request persistence.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensource-insurance/heron/internal/domain"
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts a new aggregate or updates an existing one with an
// optimistic version check. The stored history is replaced with the
// aggregate's history inside the same transaction.
func (r *SQLRepository) Save(ctx context.Context, req *domain.PolicyRequest) (*domain.PolicyRequest, error) {
	coverages, err := json.Marshal(req.Coverages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coverages: %w", err)
	}
	assistances, err := json.Marshal(req.Assistances)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assistances: %w", err)
	}

	var riskAnalysis sql.NullString
	if req.RiskAnalysis != nil {
		data, err := json.Marshal(req.RiskAnalysis)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal risk analysis: %w", err)
		}
		riskAnalysis = sql.NullString{String: string(data), Valid: true}
	}

	var finishedAt sql.NullTime
	if req.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *req.FinishedAt, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if req.Version == 0 {
		query := `
			INSERT INTO policy_requests (
				id, customer_id, product_id, category, sales_channel,
				payment_method, status, premium_amount, insured_amount,
				coverages, assistances, risk_analysis, created_at,
				finished_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		`
		_, err = tx.ExecContext(ctx, r.rebind(query),
			req.ID.String(), req.CustomerID.String(), req.ProductID.String(),
			string(req.Category), string(req.SalesChannel), string(req.PaymentMethod),
			string(req.Status),
			req.TotalMonthlyPremiumAmount.String(), req.InsuredAmount.String(),
			string(coverages), string(assistances), riskAnalysis,
			req.CreatedAt, finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert policy request: %w", err)
		}
		req.Version = 1
	} else {
		query := `
			UPDATE policy_requests SET
				status = ?, premium_amount = ?, insured_amount = ?,
				coverages = ?, assistances = ?, risk_analysis = ?,
				finished_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`
		result, err := tx.ExecContext(ctx, r.rebind(query),
			string(req.Status),
			req.TotalMonthlyPremiumAmount.String(), req.InsuredAmount.String(),
			string(coverages), string(assistances), riskAnalysis,
			finishedAt,
			req.ID.String(), req.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update policy request: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, domain.ErrConflict
		}
		req.Version++
	}

	// Replace history rows; the log is small and append-only.
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM status_history WHERE policy_request_id = ?`), req.ID.String()); err != nil {
		return nil, fmt.Errorf("failed to clear status history: %w", err)
	}
	for i, entry := range req.StatusHistory {
		query := `
			INSERT INTO status_history (
				policy_request_id, seq, from_status, to_status, changed_at, reason
			) VALUES (?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, r.rebind(query),
			req.ID.String(), i,
			string(entry.FromStatus), string(entry.ToStatus),
			entry.ChangedAt, entry.Reason,
		); err != nil {
			return nil, fmt.Errorf("failed to insert status history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return req, nil
}

// FindByID retrieves a policy request with its status history.
func (r *SQLRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	query := `
		SELECT id, customer_id, product_id, category, sales_channel,
			   payment_method, status, premium_amount, insured_amount,
			   coverages, assistances, risk_analysis, created_at,
			   finished_at, version
		FROM policy_requests
		WHERE id = ?
	`

	req, err := scanPolicyRequest(r.db.QueryRowContext(ctx, r.rebind(query), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadHistory(ctx, req); err != nil {
		return nil, err
	}

	return req, nil
}

// FindByCustomerID lists a customer's policy requests, newest first.
func (r *SQLRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.PolicyRequest, error) {
	query := `
		SELECT id, customer_id, product_id, category, sales_channel,
			   payment_method, status, premium_amount, insured_amount,
			   coverages, assistances, risk_analysis, created_at,
			   finished_at, version
		FROM policy_requests
		WHERE customer_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), customerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.PolicyRequest
	for rows.Next() {
		req, err := scanPolicyRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, req := range requests {
		if err := r.loadHistory(ctx, req); err != nil {
			return nil, err
		}
	}

	return requests, nil
}

func (r *SQLRepository) loadHistory(ctx context.Context, req *domain.PolicyRequest) error {
	query := `
		SELECT from_status, to_status, changed_at, reason
		FROM status_history
		WHERE policy_request_id = ?
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), req.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.StatusHistory
		var from, to string
		var reason sql.NullString
		if err := rows.Scan(&from, &to, &entry.ChangedAt, &reason); err != nil {
			return err
		}
		entry.FromStatus = domain.Status(from)
		entry.ToStatus = domain.Status(to)
		entry.Reason = reason.String
		req.StatusHistory = append(req.StatusHistory, entry)
	}
	return rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanPolicyRequest.
type scanner interface {
	Scan(dest ...any) error
}

func scanPolicyRequest(row scanner) (*domain.PolicyRequest, error) {
	var req domain.PolicyRequest
	var id, customerID, productID string
	var category, salesChannel, paymentMethod, status string
	var premium, insured string
	var coverages string
	var assistances, riskAnalysis sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&id, &customerID, &productID, &category, &salesChannel,
		&paymentMethod, &status, &premium, &insured,
		&coverages, &assistances, &riskAnalysis, &req.CreatedAt,
		&finishedAt, &req.Version,
	)
	if err != nil {
		return nil, err
	}

	if req.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}
	if req.CustomerID, err = uuid.Parse(customerID); err != nil {
		return nil, fmt.Errorf("failed to parse customer id: %w", err)
	}
	if req.ProductID, err = uuid.Parse(productID); err != nil {
		return nil, fmt.Errorf("failed to parse product id: %w", err)
	}

	req.Category = domain.InsuranceCategory(category)
	req.SalesChannel = domain.SalesChannel(salesChannel)
	req.PaymentMethod = domain.PaymentMethod(paymentMethod)
	req.Status = domain.Status(status)

	if req.TotalMonthlyPremiumAmount, err = decimal.NewFromString(premium); err != nil {
		return nil, fmt.Errorf("failed to parse premium amount: %w", err)
	}
	if req.InsuredAmount, err = decimal.NewFromString(insured); err != nil {
		return nil, fmt.Errorf("failed to parse insured amount: %w", err)
	}

	if err := json.Unmarshal([]byte(coverages), &req.Coverages); err != nil {
		return nil, fmt.Errorf("failed to parse coverages: %w", err)
	}
	if assistances.Valid && assistances.String != "" {
		if err := json.Unmarshal([]byte(assistances.String), &req.Assistances); err != nil {
			return nil, fmt.Errorf("failed to parse assistances: %w", err)
		}
	}
	if riskAnalysis.Valid && riskAnalysis.String != "" {
		req.RiskAnalysis = &domain.RiskAnalysis{}
		if err := json.Unmarshal([]byte(riskAnalysis.String), req.RiskAnalysis); err != nil {
			return nil, fmt.Errorf("failed to parse risk analysis: %w", err)
		}
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		req.FinishedAt = &t
	}

	return &req, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
