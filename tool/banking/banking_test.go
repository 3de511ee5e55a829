package banking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/logging"
	"github.com/bankdesk/bankdesk/session"
	"github.com/bankdesk/bankdesk/store"
	"github.com/bankdesk/bankdesk/store/inmem"
	"github.com/bankdesk/bankdesk/tool"
)

func testToolContext(t *testing.T) *core.ToolContext {
	t.Helper()

	key := core.ThreadKey{App: "Bank Customer Service", UserID: "user-1", Role: core.RoleStructuredData}
	threads := session.NewInMemoryStore()
	thread, err := threads.GetOrCreate(key)
	require.NoError(t, err)

	emit := make(chan core.Event, 10)
	resume := make(chan struct{}, 1)
	rc := core.NewRunContext(
		context.Background(),
		key,
		"inv-1",
		core.AgentInfo{Name: "data_agent", Role: core.RoleStructuredData},
		core.Content{},
		10,
		emit,
		resume,
		thread,
		threads,
		nil,
		logging.NoOpLogger{},
	)
	return core.NewToolContext(rc, "fc-1")
}

func TestToolset_Names(t *testing.T) {
	tools := Toolset(inmem.NewWithFixtures())

	names := map[string]bool{}
	for _, tl := range tools {
		names[tl.Name()] = true
	}
	for _, want := range []string{
		"get_customer", "find_customers", "get_account", "get_customer_accounts",
		"find_transactions", "transaction_summary", "get_current_date_time",
		"add_numbers", "subtract_numbers", "multiply_numbers", "divide_numbers",
		"sum_numbers", "average_numbers", "calculate",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestGetCustomerTool(t *testing.T) {
	st := inmem.NewWithFixtures()
	tc := testToolContext(t)

	res, err := NewGetCustomerTool(st).Call(tc, map[string]any{"customer_id": "cust-001"})
	require.NoError(t, err)
	customer := res.(*store.Customer)
	assert.Equal(t, "Ava Thompson", customer.Name)

	_, err = NewGetCustomerTool(st).Call(tc, map[string]any{"customer_id": "cust-404"})
	require.Error(t, err)
	toolErr, ok := err.(*tool.ToolError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", toolErr.Code)
}

func TestFindTransactionsTool_DateRange(t *testing.T) {
	st := inmem.NewWithFixtures()
	tc := testToolContext(t)

	from := time.Now().UTC().AddDate(0, 0, -10).Format("2006-01-02")
	res, err := NewFindTransactionsTool(st).Call(tc, map[string]any{
		"customer_id": "cust-001",
		"from":        from,
	})
	require.NoError(t, err)
	out := res.(map[string]any)
	assert.Equal(t, 2, out["count"])

	_, err = NewFindTransactionsTool(st).Call(tc, map[string]any{"from": "not-a-date"})
	require.Error(t, err)
	toolErr, ok := err.(*tool.ToolError)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestTransactionSummaryTool(t *testing.T) {
	st := inmem.NewWithFixtures()
	tc := testToolContext(t)

	res, err := NewTransactionSummaryTool(st).Call(tc, map[string]any{"customer_id": "cust-001"})
	require.NoError(t, err)
	out := res.(map[string]any)
	summary := out["summary"].([]store.TypeSummary)
	require.Len(t, summary, 4)
}

func TestCurrentDateTimeTool(t *testing.T) {
	tc := testToolContext(t)

	res, err := NewCurrentDateTimeTool().Call(tc, map[string]any{})
	require.NoError(t, err)
	out := res.(map[string]any)

	_, err = time.Parse(time.RFC3339, out["iso"].(string))
	assert.NoError(t, err)
	_, err = time.Parse("2006-01-02", out["date"].(string))
	assert.NoError(t, err)
}

func TestDivideNumbersTool_ByZero(t *testing.T) {
	tc := testToolContext(t)
	var divide tool.Tool
	for _, tl := range MathToolset() {
		if tl.Name() == "divide_numbers" {
			divide = tl
		}
	}
	require.NotNil(t, divide)

	res, err := divide.Call(tc, map[string]any{"a": 10.0, "b": 0.0})
	require.NoError(t, err)
	assert.Equal(t, "Error: Division by zero is not allowed", res)

	res, err = divide.Call(tc, map[string]any{"a": 10.0, "b": 4.0})
	require.NoError(t, err)
	assert.Equal(t, 2.5, res)
}

func TestSumAndAverageTools(t *testing.T) {
	tc := testToolContext(t)

	res, err := NewSumNumbersTool().Call(tc, map[string]any{"numbers": []any{1.5, 2.5, 6.0}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res)

	res, err = NewAverageNumbersTool().Call(tc, map[string]any{"numbers": []any{2.0, 4.0, 6.0}})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res)

	res, err = NewAverageNumbersTool().Call(tc, map[string]any{"numbers": []any{}})
	require.NoError(t, err)
	assert.Equal(t, "Error: Division by zero is not allowed", res)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"2 + 2", 4.0},
		{"10 - 3 * 2", 4.0},
		{"(10 - 3) * 2", 14.0},
		{"2 ** 10", 1024.0},
		{"2 ** 3 ** 2", 512.0}, // right associative
		{"10 % 3", 1.0},
		{"-5 + 3", -2.0},
		{"1500.00 * 0.05", 75.0},
		{"1 / 0", "Error evaluating expression: division by zero"},
		{"10 % 0", "Error evaluating expression: division by zero"},
		{"__import__('os')", "Error: Invalid characters in expression"},
		{"2 + x", "Error: Invalid characters in expression"},
		{"(2 + 3", "Error evaluating expression: missing closing parenthesis"},
		{"", "Error evaluating expression: unexpected end of expression"},
	}

	for _, tt := range tests {
		got := Calculate(tt.expr)
		if want, ok := tt.want.(float64); ok {
			require.IsType(t, 0.0, got, "expr %q", tt.expr)
			assert.InDelta(t, want, got.(float64), 1e-9, "expr %q", tt.expr)
		} else {
			assert.Equal(t, tt.want, got, "expr %q", tt.expr)
		}
	}
}

func TestCalculateTool(t *testing.T) {
	tc := testToolContext(t)

	res, err := NewCalculateTool().Call(tc, map[string]any{"expression": "2 + 2"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "4", FormatNumber(4.0))
	assert.Equal(t, "0.05", FormatNumber(0.05))
	assert.Equal(t, "2450.75", FormatNumber(2450.75))
}
