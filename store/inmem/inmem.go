// Package inmem provides a fixture-backed store.Store for tests and demos.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bankdesk/bankdesk/store"
)

// Store keeps all records in process memory. It is safe for concurrent reads
// and seeded writes; mutate only through Seed helpers.
type Store struct {
	mu           sync.RWMutex
	customers    map[string]store.Customer
	accounts     map[string]store.Account
	transactions []store.Transaction
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		customers: map[string]store.Customer{},
		accounts:  map[string]store.Account{},
	}
}

// NewWithFixtures returns a store pre-populated with a small demo data set.
func NewWithFixtures() *Store {
	s := New()
	now := time.Now().UTC()

	s.SeedCustomers(
		store.Customer{CustomerID: "cust-001", Name: "Ava Thompson", Email: "ava.thompson@example.com", Phone: "+1-555-0101", Address: "12 Harbor St, Springfield"},
		store.Customer{CustomerID: "cust-002", Name: "Noah Patel", Email: "noah.patel@example.com", Phone: "+1-555-0102", Address: "87 Oak Ave, Riverton"},
	)
	s.SeedAccounts(
		store.Account{AccountID: "acc-001", CustomerID: "cust-001", AccountType: "checking", Balance: 2450.75, Currency: "USD", Status: "active", CreatedAt: now.AddDate(-2, 0, 0)},
		store.Account{AccountID: "acc-002", CustomerID: "cust-001", AccountType: "savings", Balance: 10200.00, Currency: "USD", Status: "active", CreatedAt: now.AddDate(-1, -3, 0)},
		store.Account{AccountID: "acc-003", CustomerID: "cust-002", AccountType: "checking", Balance: 310.40, Currency: "USD", Status: "active", CreatedAt: now.AddDate(0, -8, 0)},
	)
	s.SeedTransactions(
		store.Transaction{TransactionID: "txn-001", AccountID: "acc-001", CustomerID: "cust-001", Type: "deposit", Amount: 1500.00, Description: "Salary", Timestamp: now.AddDate(0, 0, -20)},
		store.Transaction{TransactionID: "txn-002", AccountID: "acc-001", CustomerID: "cust-001", Type: "payment", Amount: 89.99, Description: "Utility bill", Timestamp: now.AddDate(0, 0, -14)},
		store.Transaction{TransactionID: "txn-003", AccountID: "acc-001", CustomerID: "cust-001", Type: "withdrawal", Amount: 200.00, Description: "ATM withdrawal", Timestamp: now.AddDate(0, 0, -7)},
		store.Transaction{TransactionID: "txn-004", AccountID: "acc-002", CustomerID: "cust-001", Type: "transfer", Amount: 500.00, Description: "Savings top-up", Timestamp: now.AddDate(0, 0, -3)},
		store.Transaction{TransactionID: "txn-005", AccountID: "acc-003", CustomerID: "cust-002", Type: "deposit", Amount: 120.00, Description: "Refund", Timestamp: now.AddDate(0, 0, -1)},
	)
	return s
}

// SeedCustomers inserts or replaces customers.
func (s *Store) SeedCustomers(customers ...store.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range customers {
		s.customers[c.CustomerID] = c
	}
}

// SeedAccounts inserts or replaces accounts.
func (s *Store) SeedAccounts(accounts ...store.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts[a.AccountID] = a
	}
}

// SeedTransactions appends transactions.
func (s *Store) SeedTransactions(transactions ...store.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, transactions...)
}

// GetCustomer implements store.Store.
func (s *Store) GetCustomer(_ context.Context, customerID string) (*store.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

// FindCustomers implements store.Store.
func (s *Store) FindCustomers(_ context.Context, f store.CustomerFilter) ([]store.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []store.Customer{}
	for _, c := range s.customers {
		if f.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Email != "" && c.Email != f.Email {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CustomerID < result[j].CustomerID })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// GetAccount implements store.Store.
func (s *Store) GetAccount(_ context.Context, accountID string) (*store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

// GetCustomerAccounts implements store.Store.
func (s *Store) GetCustomerAccounts(_ context.Context, customerID string) ([]store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []store.Account{}
	for _, a := range s.accounts {
		if a.CustomerID == customerID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AccountID < result[j].AccountID })
	return result, nil
}

// FindTransactions implements store.Store.
func (s *Store) FindTransactions(_ context.Context, f store.TransactionFilter) ([]store.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []store.Transaction{}
	for _, t := range s.transactions {
		if f.CustomerID != "" && t.CustomerID != f.CustomerID {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.MinAmount > 0 && t.Amount < f.MinAmount {
			continue
		}
		if f.MaxAmount > 0 && t.Amount > f.MaxAmount {
			continue
		}
		if !f.From.IsZero() && t.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Timestamp.After(f.To) {
			continue
		}
		result = append(result, t)
	}
	// Most recent first, matching how statements are read.
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// TransactionSummary implements store.Store.
func (s *Store) TransactionSummary(_ context.Context, customerID string) ([]store.TypeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := map[string]*store.TypeSummary{}
	for _, t := range s.transactions {
		if t.CustomerID != customerID {
			continue
		}
		summary, ok := byType[t.Type]
		if !ok {
			summary = &store.TypeSummary{Type: t.Type}
			byType[t.Type] = summary
		}
		summary.Count++
		summary.Total += t.Amount
	}

	result := make([]store.TypeSummary, 0, len(byType))
	for _, summary := range byType {
		summary.Average = summary.Total / float64(summary.Count)
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result, nil
}
