package sessionsvc

import "testing"

func TestCELFilter(t *testing.T) {
	data := []byte(`{"id":"r1","modelUsed":"gemini","isError":true,"tokenCount":12}`)
	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{`json.modelUsed == "gemini"`, true},
		{`json.isError`, true},
		{`json.tokenCount >= 12.0`, true},
		{`text.contains("gemini") && size > 10`, true},
		{`id == "r1" && ordinal == 7`, true},
		{`json.missing == "x"`, false},
		{`ordinal < 3`, false},
	}
	for _, tt := range tests {
		f, err := newCELFilter(tt.expr)
		if err != nil {
			t.Fatalf("compile %q: %v", tt.expr, err)
		}
		if got := f.Eval("r1", 7, data); got != tt.want {
			t.Fatalf("%q = %v want %v", tt.expr, got, tt.want)
		}
	}
}

func TestCELFilterRejectsBadExpressions(t *testing.T) {
	for _, expr := range []string{"json.a ==", `unknown_var == 1`, `id + 1`} {
		if _, err := newCELFilter(expr); err == nil {
			t.Fatalf("expected compile error for %q", expr)
		}
	}
}

func TestCELFilterNonBoolResult(t *testing.T) {
	f, err := newCELFilter(`json.modelUsed`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Eval("r1", 0, []byte(`{"modelUsed":"x"}`)) {
		t.Fatalf("non-bool result must not match")
	}
}
