// Package banking provides the structured-data toolset backed by store.Store:
// customer, account and transaction lookups plus the arithmetic helpers used
// for on-the-fly calculations over retrieved figures.
package banking

import (
	"fmt"
	"time"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/store"
	"github.com/bankdesk/bankdesk/tool"
)

// Toolset returns every banking tool bound to st, data lookups and math
// helpers together. This is the set handed to the structured-data agent.
func Toolset(st store.Store) []tool.Tool {
	tools := []tool.Tool{
		NewGetCustomerTool(st),
		NewFindCustomersTool(st),
		NewGetAccountTool(st),
		NewGetCustomerAccountsTool(st),
		NewFindTransactionsTool(st),
		NewTransactionSummaryTool(st),
		NewCurrentDateTimeTool(),
	}
	return append(tools, MathToolset()...)
}

// NewGetCustomerTool looks up a single customer profile by ID.
func NewGetCustomerTool(st store.Store) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer_id": map[string]any{
				"type":        "string",
				"description": "Unique customer identifier, e.g. cust-001",
			},
		},
		"required": []string{"customer_id"},
	}

	return tool.NewFunctionTool(
		"get_customer",
		"Get a customer's profile (name, email, phone, address) by customer ID",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			id, _ := args["customer_id"].(string)
			customer, err := st.GetCustomer(toolCtx.Context(), id)
			if err != nil {
				return nil, wrapStoreErr("get_customer", err)
			}
			return customer, nil
		},
	)
}

// NewFindCustomersTool searches customers by name substring or exact email.
func NewFindCustomersTool(st store.Store) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Case-insensitive substring of the customer name",
			},
			"email": map[string]any{
				"type":        "string",
				"description": "Exact email address",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of customers to return",
			},
		},
	}

	return tool.NewFunctionTool(
		"find_customers",
		"Search customers by name or email",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			filter := store.CustomerFilter{
				Name:  stringArg(args, "name"),
				Email: stringArg(args, "email"),
				Limit: intArg(args, "limit"),
			}
			customers, err := st.FindCustomers(toolCtx.Context(), filter)
			if err != nil {
				return nil, wrapStoreErr("find_customers", err)
			}
			return map[string]any{"count": len(customers), "customers": customers}, nil
		},
	)
}

// NewGetAccountTool looks up a single account by ID.
func NewGetAccountTool(st store.Store) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"account_id": map[string]any{
				"type":        "string",
				"description": "Unique account identifier, e.g. acc-001",
			},
		},
		"required": []string{"account_id"},
	}

	return tool.NewFunctionTool(
		"get_account",
		"Get an account's details (type, balance, currency, status) by account ID",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			id, _ := args["account_id"].(string)
			account, err := st.GetAccount(toolCtx.Context(), id)
			if err != nil {
				return nil, wrapStoreErr("get_account", err)
			}
			return account, nil
		},
	)
}

// NewGetCustomerAccountsTool lists all accounts held by a customer.
func NewGetCustomerAccountsTool(st store.Store) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer_id": map[string]any{
				"type":        "string",
				"description": "Unique customer identifier",
			},
		},
		"required": []string{"customer_id"},
	}

	return tool.NewFunctionTool(
		"get_customer_accounts",
		"List all accounts belonging to a customer",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			id, _ := args["customer_id"].(string)
			accounts, err := st.GetCustomerAccounts(toolCtx.Context(), id)
			if err != nil {
				return nil, wrapStoreErr("get_customer_accounts", err)
			}
			return map[string]any{"count": len(accounts), "accounts": accounts}, nil
		},
	)
}

// NewFindTransactionsTool searches transactions with optional filters on
// account, type, amount range and date/time range.
func NewFindTransactionsTool(st store.Store) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer_id": map[string]any{
				"type":        "string",
				"description": "Restrict to this customer's transactions",
			},
			"account_id": map[string]any{
				"type":        "string",
				"description": "Restrict to this account's transactions",
			},
			"transaction_type": map[string]any{
				"type":        "string",
				"description": "One of deposit, withdrawal, payment, transfer",
			},
			"min_amount": map[string]any{
				"type":        "number",
				"description": "Minimum transaction amount",
			},
			"max_amount": map[string]any{
				"type":        "number",
				"description": "Maximum transaction amount",
			},
			"from": map[string]any{
				"type":        "string",
				"description": "Earliest timestamp, YYYY-MM-DD or RFC3339",
			},
			"to": map[string]any{
				"type":        "string",
				"description": "Latest timestamp, YYYY-MM-DD or RFC3339",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of transactions to return",
			},
		},
	}

	return tool.NewFunctionTool(
		"find_transactions",
		"Search transactions filtered by customer, account, type, amount range or date range (most recent first)",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			from, err := timeArg(args, "from")
			if err != nil {
				return nil, tool.NewToolError("find_transactions", err.Error(), "VALIDATION_ERROR")
			}
			to, err := timeArg(args, "to")
			if err != nil {
				return nil, tool.NewToolError("find_transactions", err.Error(), "VALIDATION_ERROR")
			}

			filter := store.TransactionFilter{
				CustomerID: stringArg(args, "customer_id"),
				AccountID:  stringArg(args, "account_id"),
				Type:       stringArg(args, "transaction_type"),
				MinAmount:  floatArg(args, "min_amount"),
				MaxAmount:  floatArg(args, "max_amount"),
				From:       from,
				To:         to,
				Limit:      intArg(args, "limit"),
			}
			transactions, err := st.FindTransactions(toolCtx.Context(), filter)
			if err != nil {
				return nil, wrapStoreErr("find_transactions", err)
			}
			return map[string]any{"count": len(transactions), "transactions": transactions}, nil
		},
	)
}

// NewTransactionSummaryTool aggregates a customer's transactions per type.
func NewTransactionSummaryTool(st store.Store) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer_id": map[string]any{
				"type":        "string",
				"description": "Unique customer identifier",
			},
		},
		"required": []string{"customer_id"},
	}

	return tool.NewFunctionTool(
		"transaction_summary",
		"Summarize a customer's transactions per type with count, total and average amount",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			id, _ := args["customer_id"].(string)
			summary, err := st.TransactionSummary(toolCtx.Context(), id)
			if err != nil {
				return nil, wrapStoreErr("transaction_summary", err)
			}
			return map[string]any{"customer_id": id, "summary": summary}, nil
		},
	)
}

// NewCurrentDateTimeTool reports the current date and time, used by agents to
// resolve relative date expressions like "last month".
func NewCurrentDateTimeTool() *tool.FunctionTool {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	return tool.NewFunctionTool(
		"get_current_date_time",
		"Get the current date and time in UTC",
		params,
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			now := time.Now().UTC()
			return map[string]any{
				"iso":  now.Format(time.RFC3339),
				"date": now.Format("2006-01-02"),
				"time": now.Format("15:04:05"),
			}, nil
		},
	)
}

func wrapStoreErr(toolName string, err error) error {
	if err == store.ErrNotFound {
		return tool.NewToolError(toolName, "no matching record found", "NOT_FOUND")
	}
	return tool.NewToolError(toolName, err.Error(), "EXECUTION_ERROR")
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// timeArg parses a date argument accepting RFC3339 or plain YYYY-MM-DD.
func timeArg(args map[string]any, key string) (time.Time, error) {
	s, _ := args[key].(string)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD or RFC3339", key, s)
}
