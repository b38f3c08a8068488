package llm

import "testing"

func TestExtractJSONObject(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"markdown fence", "```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, true},
		{"first of two", `x {"a":1} y {"b":2}`, `{"a":1}`, true},
		{"brace in string", `{"q":"what is {x}?","n":1} tail`, `{"q":"what is {x}?","n":1}`, true},
		{"escaped quote", `{"q":"say \"}\" now"}`, `{"q":"say \"}\" now"}`, true},
		{"unbalanced then balanced", `{ broken {"ok":true}`, `{"ok":true}`, true},
		{"never closed", `{"a":1`, ``, false},
		{"no object", `plain text`, ``, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tc.input)
			if ok != tc.ok {
				t.Fatalf("Expected ok=%v, got %v", tc.ok, ok)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
