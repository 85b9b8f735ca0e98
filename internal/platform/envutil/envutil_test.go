package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "unset", raw: "", want: 5 * time.Second},
		{name: "go_duration", raw: "90s", want: 90 * time.Second},
		{name: "bare_seconds", raw: "60", want: 60 * time.Second},
		{name: "garbage", raw: "soon", want: 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LL_TEST_DURATION", tc.raw)
			if got := Duration("LL_TEST_DURATION", 5*time.Second); got != tc.want {
				t.Fatalf("Duration(%q)=%s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("LL_TEST_BOOL", "yes")
	if !Bool("LL_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("LL_TEST_BOOL", "maybe")
	if Bool("LL_TEST_BOOL", false) {
		t.Fatalf("unknown values should fall back to default")
	}
	t.Setenv("LL_TEST_LIST", " a, ,b ,")
	got := List("LL_TEST_LIST")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List=%v", got)
	}
}
