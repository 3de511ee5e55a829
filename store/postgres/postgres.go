// Package postgres implements store.Store on PostgreSQL via bun.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/bankdesk/bankdesk/store"
)

// Store is a bun-backed store.Store.
type Store struct {
	db *bun.DB
}

// New opens a connection pool for dsn and verifies connectivity.
func New(ctx context.Context, dsn string) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing bun.DB, mainly for tests.
func NewFromDB(db *bun.DB) *Store { return &Store{db: db} }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// GetCustomer implements store.Store.
func (s *Store) GetCustomer(ctx context.Context, customerID string) (*store.Customer, error) {
	customer := new(store.Customer)
	err := s.db.NewSelect().Model(customer).
		Where("customer_id = ?", customerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select customer: %w", err)
	}
	return customer, nil
}

// FindCustomers implements store.Store.
func (s *Store) FindCustomers(ctx context.Context, f store.CustomerFilter) ([]store.Customer, error) {
	customers := []store.Customer{}
	q := s.db.NewSelect().Model(&customers).Order("customer_id ASC")
	if f.Name != "" {
		q = q.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	return customers, nil
}

// GetAccount implements store.Store.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*store.Account, error) {
	account := new(store.Account)
	err := s.db.NewSelect().Model(account).
		Where("account_id = ?", accountID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return account, nil
}

// GetCustomerAccounts implements store.Store.
func (s *Store) GetCustomerAccounts(ctx context.Context, customerID string) ([]store.Account, error) {
	accounts := []store.Account{}
	err := s.db.NewSelect().Model(&accounts).
		Where("customer_id = ?", customerID).
		Order("account_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return accounts, nil
}

// FindTransactions implements store.Store.
func (s *Store) FindTransactions(ctx context.Context, f store.TransactionFilter) ([]store.Transaction, error) {
	transactions := []store.Transaction{}
	q := s.db.NewSelect().Model(&transactions).Order("timestamp DESC")
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.Type != "" {
		q = q.Where("transaction_type = ?", f.Type)
	}
	if f.MinAmount > 0 {
		q = q.Where("amount >= ?", f.MinAmount)
	}
	if f.MaxAmount > 0 {
		q = q.Where("amount <= ?", f.MaxAmount)
	}
	if !f.From.IsZero() {
		q = q.Where("timestamp >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("timestamp <= ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return transactions, nil
}

// TransactionSummary implements store.Store.
func (s *Store) TransactionSummary(ctx context.Context, customerID string) ([]store.TypeSummary, error) {
	summaries := []store.TypeSummary{}
	err := s.db.NewSelect().
		Model((*store.Transaction)(nil)).
		ColumnExpr("transaction_type AS type").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("SUM(amount) AS total").
		ColumnExpr("AVG(amount) AS average").
		Where("customer_id = ?", customerID).
		Group("transaction_type").
		Order("transaction_type ASC").
		Scan(ctx, &summaries)
	if err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}
	return summaries, nil
}
