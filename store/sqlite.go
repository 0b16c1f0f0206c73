package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SQLiteStore is an OrganizationStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore and initialises the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS organization (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL,
    stripe_id  TEXT NOT NULL DEFAULT '',
    stripe_sub TEXT NOT NULL DEFAULT '',
    sub_status TEXT NOT NULL DEFAULT '',
    plans      BLOB,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_organization_name_email
    ON organization(name, email);

CREATE INDEX IF NOT EXISTS idx_organization_stripe_sub
    ON organization(stripe_sub);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Create inserts a new organization and fills in its id.
func (s *SQLiteStore) Create(ctx context.Context, org *Organization) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO organization (name, email, stripe_id) VALUES (?, ?, ?)`,
		org.Name, org.Email, org.CustomerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: create organization: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: create organization: %w", err)
	}
	org.ID = id
	return nil
}

// Get returns the organization by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, stripe_id, stripe_sub, sub_status, plans
		 FROM organization WHERE id = ?`, id)
	return scanOrganization(row)
}

// Exists reports whether an organization with the name and email exists.
func (s *SQLiteStore) Exists(ctx context.Context, name, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM organization WHERE name = ? AND email = ?`, name, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check organization: %w", err)
	}
	return true, nil
}

// GetByCustomer returns the organization owning the billing customer id.
func (s *SQLiteStore) GetByCustomer(ctx context.Context, customerID string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, stripe_id, stripe_sub, sub_status, plans
		 FROM organization WHERE stripe_id = ?`, customerID)
	return scanOrganization(row)
}

// List returns all organizations ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, stripe_id, stripe_sub, sub_status, plans
		 FROM organization ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list organizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orgs []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list organizations: %w", err)
	}
	return orgs, nil
}

// SetSubscription records the subscription snapshot on the organization.
func (s *SQLiteStore) SetSubscription(ctx context.Context, orgID int64, snap SubscriptionSnapshot) error {
	plans, err := marshalPlans(snap.Plans)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		`UPDATE organization SET stripe_sub = ?, sub_status = ?, plans = ? WHERE id = ?`,
		snap.SubscriptionID, snap.Status, plans, orgID)
}

// SetSubscriptionByCustomer records the snapshot keyed by customer id.
func (s *SQLiteStore) SetSubscriptionByCustomer(ctx context.Context, customerID string, snap SubscriptionSnapshot) error {
	plans, err := marshalPlans(snap.Plans)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		`UPDATE organization SET stripe_sub = ?, sub_status = ?, plans = ? WHERE stripe_id = ?`,
		snap.SubscriptionID, snap.Status, plans, customerID)
}

// ClearSubscription removes the snapshot holding the subscription id.
func (s *SQLiteStore) ClearSubscription(ctx context.Context, subscriptionID string) error {
	return s.exec(ctx,
		`UPDATE organization SET stripe_sub = '', sub_status = '', plans = NULL WHERE stripe_sub = ?`,
		subscriptionID)
}

// ClearSubscriptionByOrg removes the snapshot from the organization.
func (s *SQLiteStore) ClearSubscriptionByOrg(ctx context.Context, orgID int64) error {
	return s.exec(ctx,
		`UPDATE organization SET stripe_sub = '', sub_status = '', plans = NULL WHERE id = ?`,
		orgID)
}

func (s *SQLiteStore) exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: update organization: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*Organization, error) {
	var org Organization
	var plans []byte
	err := row.Scan(&org.ID, &org.Name, &org.Email, &org.CustomerID,
		&org.SubscriptionID, &org.SubscriptionStatus, &plans)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: scan organization: %w", err)
	}
	if len(plans) > 0 {
		if err := json.Unmarshal(plans, &org.Plans); err != nil {
			return nil, fmt.Errorf("store: decode plans: %w", err)
		}
	}
	return &org, nil
}

func marshalPlans(plans []PlanItem) ([]byte, error) {
	if len(plans) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(plans)
	if err != nil {
		return nil, fmt.Errorf("store: encode plans: %w", err)
	}
	return b, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
// modernc.org/sqlite does not export a typed error for this, so the message
// is matched the same way the driver's own tests do.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
