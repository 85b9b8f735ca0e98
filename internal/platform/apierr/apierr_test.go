package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var errSample = Sentinel(KindUpstreamUnavailable, http.StatusNotFound, "no_transcript", "no transcript available")

func TestFromWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("%w: captions disabled", errSample)
	if !errors.Is(err, errSample) {
		t.Fatalf("errors.Is lost the sentinel")
	}
	ae := From(err)
	if ae.Status != http.StatusNotFound || ae.Code != "no_transcript" || ae.Kind != KindUpstreamUnavailable {
		t.Fatalf("unexpected classification: %+v", ae)
	}
	if ae.Error() != "no transcript available: captions disabled" {
		t.Fatalf("message=%q", ae.Error())
	}
}

func TestFromPlainError(t *testing.T) {
	ae := From(errors.New("boom"))
	if ae.Status != http.StatusInternalServerError || ae.Kind != KindInternal {
		t.Fatalf("unexpected classification: %+v", ae)
	}
	if From(nil) != nil {
		t.Fatalf("From(nil) should be nil")
	}
}

func TestNewDerivesKind(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindInputValidation},
		{http.StatusNotFound, KindNotFound},
		{http.StatusConflict, KindConflict},
		{http.StatusInternalServerError, KindInternal},
	}
	for _, tc := range cases {
		if got := New(tc.status, "x", nil).Kind; got != tc.want {
			t.Fatalf("status %d: kind=%s want %s", tc.status, got, tc.want)
		}
	}
}
