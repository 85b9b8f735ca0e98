package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  interface{}
		want interface{}
	}{
		{name: "api_key_redacted", key: "api_key", val: "abc", want: "[REDACTED]"},
		{name: "authorization_redacted", key: "authorization", val: "Bearer x", want: "[REDACTED]"},
		{name: "token_counts_kept", key: "input_tokens", val: 42, want: 42},
		{name: "provider_key_value_redacted", key: "value", val: "sk-1234567890abcdefghijkl", want: "[REDACTED]"},
		{name: "plain_value_kept", key: "video_id", val: "abc12345678", want: "abc12345678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeValue(tc.key, tc.val)
			if got != tc.want {
				t.Fatalf("sanitizeValue(%q, %v)=%v, want %v", tc.key, tc.val, got, tc.want)
			}
		})
	}
}

func TestSanitizeValueHashesSessionIDs(t *testing.T) {
	got, ok := sanitizeValue("session_id", "3f1c").(string)
	if !ok {
		t.Fatalf("expected string")
	}
	if len(got) != len("hash:")+12 || got[:5] != "hash:" {
		t.Fatalf("unexpected hash %q", got)
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	l, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("discarded", "k", "v")
	l.Sync()
}

func TestSanitizeValueTruncatesLearnerText(t *testing.T) {
	long := strings.Repeat("x", maxTextField+50)
	got, _ := sanitizeValue("code", long).(string)
	if !strings.HasPrefix(got, strings.Repeat("x", maxTextField)+"...") || !strings.HasSuffix(got, "(250 bytes)") {
		t.Fatalf("got %q", got)
	}
	if sanitizeValue("code", "print(1)") != "print(1)" {
		t.Fatalf("short code should be kept")
	}
	if h, _ := sanitizeValue("resource", "draft:abc").(string); !strings.HasPrefix(h, "hash:") {
		t.Fatalf("resource not hashed: %q", h)
	}
}
