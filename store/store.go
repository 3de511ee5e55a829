// Package store defines the banking records behind the structured-data tool
// set. The Store interface is the seam between the tools and the backend;
// store/inmem serves tests and demos, store/postgres serves deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Customer is a bank customer.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	CustomerID string `bun:"customer_id,pk" json:"customer_id"`
	Name       string `bun:"name" json:"name"`
	Email      string `bun:"email" json:"email"`
	Phone      string `bun:"phone" json:"phone"`
	Address    string `bun:"address" json:"address"`
}

// Account is an account owned by a customer.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	AccountID   string    `bun:"account_id,pk" json:"account_id"`
	CustomerID  string    `bun:"customer_id" json:"customer_id"`
	AccountType string    `bun:"account_type" json:"account_type"` // checking, savings, credit
	Balance     float64   `bun:"balance" json:"balance"`
	Currency    string    `bun:"currency" json:"currency"`
	Status      string    `bun:"status" json:"status"` // active, frozen, closed
	CreatedAt   time.Time `bun:"created_at" json:"created_at"`
}

// Transaction is a money movement on an account.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	TransactionID string    `bun:"transaction_id,pk" json:"transaction_id"`
	AccountID     string    `bun:"account_id" json:"account_id"`
	CustomerID    string    `bun:"customer_id" json:"customer_id"`
	Type          string    `bun:"transaction_type" json:"transaction_type"` // deposit, withdrawal, transfer, payment
	Amount        float64   `bun:"amount" json:"amount"`
	Description   string    `bun:"description" json:"description"`
	Timestamp     time.Time `bun:"timestamp" json:"timestamp"`
}

// TypeSummary aggregates a customer's transactions of one type.
type TypeSummary struct {
	Type    string  `json:"transaction_type"`
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// CustomerFilter narrows FindCustomers. Zero values mean "no constraint".
type CustomerFilter struct {
	Name  string // substring match, case insensitive
	Email string // exact match
	Limit int
}

// TransactionFilter narrows FindTransactions. Zero values mean "no constraint".
type TransactionFilter struct {
	CustomerID string
	AccountID  string
	Type       string
	MinAmount  float64
	MaxAmount  float64
	From       time.Time
	To         time.Time
	Limit      int
}

// Store is the read surface the banking tools operate on. All methods return
// ErrNotFound (possibly wrapped) for missing single records; list methods
// return empty slices, not errors, when nothing matches.
type Store interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	FindCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error)

	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetCustomerAccounts(ctx context.Context, customerID string) ([]Account, error)

	FindTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	TransactionSummary(ctx context.Context, customerID string) ([]TypeSummary, error)
}
