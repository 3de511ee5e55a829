package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankdesk/bankdesk/store"
)

// Interface compliance (compile-time assertion)
var _ store.Store = (*Store)(nil)

func TestStore_GetCustomer(t *testing.T) {
	s := NewWithFixtures()
	ctx := context.Background()

	c, err := s.GetCustomer(ctx, "cust-001")
	require.NoError(t, err)
	assert.Equal(t, "Ava Thompson", c.Name)

	_, err = s.GetCustomer(ctx, "cust-999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_FindCustomers(t *testing.T) {
	s := NewWithFixtures()
	ctx := context.Background()

	byName, err := s.FindCustomers(ctx, store.CustomerFilter{Name: "ava"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "cust-001", byName[0].CustomerID)

	none, err := s.FindCustomers(ctx, store.CustomerFilter{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Accounts(t *testing.T) {
	s := NewWithFixtures()
	ctx := context.Background()

	accounts, err := s.GetCustomerAccounts(ctx, "cust-001")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-001", accounts[0].AccountID)

	a, err := s.GetAccount(ctx, "acc-002")
	require.NoError(t, err)
	assert.Equal(t, "savings", a.AccountType)

	_, err = s.GetAccount(ctx, "acc-999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_FindTransactions(t *testing.T) {
	s := NewWithFixtures()
	ctx := context.Background()

	all, err := s.FindTransactions(ctx, store.TransactionFilter{CustomerID: "cust-001"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Most recent first.
	assert.True(t, all[0].Timestamp.After(all[len(all)-1].Timestamp))

	deposits, err := s.FindTransactions(ctx, store.TransactionFilter{CustomerID: "cust-001", Type: "deposit"})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, "txn-001", deposits[0].TransactionID)

	recent, err := s.FindTransactions(ctx, store.TransactionFilter{
		CustomerID: "cust-001",
		From:       time.Now().UTC().AddDate(0, 0, -10),
	})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := s.FindTransactions(ctx, store.TransactionFilter{CustomerID: "cust-001", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_TransactionSummary(t *testing.T) {
	s := NewWithFixtures()
	ctx := context.Background()

	summary, err := s.TransactionSummary(ctx, "cust-001")
	require.NoError(t, err)
	require.Len(t, summary, 4) // deposit, payment, transfer, withdrawal

	byType := map[string]store.TypeSummary{}
	for _, row := range summary {
		byType[row.Type] = row
	}
	assert.Equal(t, 1, byType["deposit"].Count)
	assert.InDelta(t, 1500.00, byType["deposit"].Total, 0.001)
	assert.InDelta(t, 1500.00, byType["deposit"].Average, 0.001)

	empty, err := s.TransactionSummary(ctx, "cust-999")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
