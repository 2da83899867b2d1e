package otel

import "testing"

func TestTraceSetting(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"msgs":  true,
	}
	for v, want := range cases {
		if got := traceSetting(v); got != want {
			t.Errorf("traceSetting(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestTraceEnabledFollowsSetter(t *testing.T) {
	prev := TraceEnabled()
	t.Cleanup(func() { setTraceEnabled(prev) })

	for _, v := range []bool{true, false, true} {
		setTraceEnabled(v)
		if TraceEnabled() != v {
			t.Errorf("TraceEnabled() = %v after set(%v)", TraceEnabled(), v)
		}
	}
}
