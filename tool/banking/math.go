package banking

import (
	"fmt"
	"strconv"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/tool"
)

// Division by zero is reported as a plain string result so the model can relay
// it to the user instead of the turn failing.
const divisionByZeroMessage = "Error: Division by zero is not allowed"

// MathToolset returns the arithmetic helpers offered to the structured-data
// agent for computing over retrieved figures.
func MathToolset() []tool.Tool {
	return []tool.Tool{
		newBinaryMathTool("add_numbers", "Add two numbers", func(a, b float64) any { return a + b }),
		newBinaryMathTool("subtract_numbers", "Subtract the second number from the first", func(a, b float64) any { return a - b }),
		newBinaryMathTool("multiply_numbers", "Multiply two numbers", func(a, b float64) any { return a * b }),
		newBinaryMathTool("divide_numbers", "Divide the first number by the second", func(a, b float64) any {
			if b == 0 {
				return divisionByZeroMessage
			}
			return a / b
		}),
		NewSumNumbersTool(),
		NewAverageNumbersTool(),
		NewCalculateTool(),
	}
}

func newBinaryMathTool(name, description string, op func(a, b float64) any) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number", "description": "First operand"},
			"b": map[string]any{"type": "number", "description": "Second operand"},
		},
		"required": []string{"a", "b"},
	}

	return tool.NewFunctionTool(name, description, params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return op(floatArg(args, "a"), floatArg(args, "b")), nil
	})
}

// NewSumNumbersTool sums a list of numbers.
func NewSumNumbersTool() *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"numbers": map[string]any{
				"type":        "array",
				"description": "Numbers to sum",
				"items":       map[string]any{"type": "number"},
			},
		},
		"required": []string{"numbers"},
	}

	return tool.NewFunctionTool(
		"sum_numbers",
		"Calculate the sum of a list of numbers",
		params,
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			numbers, err := numberSliceArg(args, "numbers")
			if err != nil {
				return nil, tool.NewToolError("sum_numbers", err.Error(), "VALIDATION_ERROR")
			}
			total := 0.0
			for _, n := range numbers {
				total += n
			}
			return total, nil
		},
	)
}

// NewAverageNumbersTool averages a list of numbers.
func NewAverageNumbersTool() *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"numbers": map[string]any{
				"type":        "array",
				"description": "Numbers to average",
				"items":       map[string]any{"type": "number"},
			},
		},
		"required": []string{"numbers"},
	}

	return tool.NewFunctionTool(
		"average_numbers",
		"Calculate the average of a list of numbers",
		params,
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			numbers, err := numberSliceArg(args, "numbers")
			if err != nil {
				return nil, tool.NewToolError("average_numbers", err.Error(), "VALIDATION_ERROR")
			}
			if len(numbers) == 0 {
				return divisionByZeroMessage, nil
			}
			total := 0.0
			for _, n := range numbers {
				total += n
			}
			return total / float64(len(numbers)), nil
		},
	)
}

// NewCalculateTool evaluates a free-form arithmetic expression. Only digits,
// operators (+ - * / % **), parentheses, decimal points and spaces are
// accepted; anything else is rejected before evaluation so the tool can never
// execute arbitrary input.
func NewCalculateTool() *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Arithmetic expression, e.g. \"(1500 - 89.99) * 0.05\"",
			},
		},
		"required": []string{"expression"},
	}

	return tool.NewFunctionTool(
		"calculate",
		"Evaluate an arithmetic expression with + - * / % ** and parentheses",
		params,
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			expr, _ := args["expression"].(string)
			return Calculate(expr), nil
		},
	)
}

// Calculate evaluates expr and returns either the numeric result or an error
// string intended for the model. Errors are results, not failures; a malformed
// expression must not abort the agent turn.
func Calculate(expr string) any {
	for _, r := range expr {
		if !allowedExprChar(r) {
			return "Error: Invalid characters in expression"
		}
	}

	result, err := evalExpression(expr)
	if err != nil {
		return "Error evaluating expression: " + err.Error()
	}
	return result
}

func allowedExprChar(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '*' || r == '/' || r == '%':
		return true
	case r == '(' || r == ')' || r == '.' || r == ' ':
		return true
	}
	return false
}

// FormatNumber renders a float without trailing zeros, so 4.0 prints as "4"
// and 0.05 as "0.05".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func numberSliceArg(args map[string]any, key string) ([]float64, error) {
	raw, ok := args[key].([]any)
	if !ok {
		if typed, ok := args[key].([]float64); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("%s must be an array of numbers", key)
	}
	numbers := make([]float64, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			numbers = append(numbers, v)
		case int:
			numbers = append(numbers, float64(v))
		default:
			return nil, fmt.Errorf("%s must contain only numbers", key)
		}
	}
	return numbers, nil
}
