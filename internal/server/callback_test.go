package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spotify-cli/internal/shared"
)

func hitCallback(h *CallbackHandler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCallbackHandler(t *testing.T) {
	t.Run("Second Hit Does Not Overwrite Result", func(t *testing.T) {
		h := NewCallbackHandler("expected-state")

		first := hitCallback(h, "/?code=first-code&state=expected-state")
		if first.Code != http.StatusOK {
			t.Fatalf("expected 200 on first callback, got %d", first.Code)
		}

		second := hitCallback(h, "/?code=second-code&state=expected-state")
		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replayed callback, got %d", second.Code)
		}
		if !strings.Contains(second.Body.String(), "Already Handled") {
			t.Error("expected the replayed callback to get the already handled page")
		}

		result := <-h.Result()
		if result.Code != "first-code" || result.Err != nil {
			t.Errorf("expected the first callback's result, got %+v", result)
		}
		if _, open := <-h.Result(); open {
			t.Error("expected the result channel to close after one result")
		}
	})

	t.Run("Missing Code Is Invalid", func(t *testing.T) {
		h := NewCallbackHandler("expected-state")

		rec := hitCallback(h, "/?state=expected-state")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for a codeless redirect, got %d", rec.Code)
		}

		result := <-h.Result()
		if !errors.Is(result.Err, shared.ErrInvalidCallback) {
			t.Errorf("expected ErrInvalidCallback, got %v", result.Err)
		}
	})

	t.Run("Denial Keeps Description Out Of Page", func(t *testing.T) {
		h := NewCallbackHandler("expected-state")

		rec := hitCallback(h, "/?error=access_denied&error_description=user+said+no&state=expected-state")
		if strings.Contains(rec.Body.String(), "user said no") {
			t.Error("provider-supplied text must not reach the response page")
		}

		result := <-h.Result()
		if !errors.Is(result.Err, shared.ErrUserDenied) || !strings.Contains(result.Err.Error(), "user said no") {
			t.Errorf("expected the description in the error, got %v", result.Err)
		}
	})

	t.Run("Routes Owns Root", func(t *testing.T) {
		h := NewCallbackHandler("expected-state")
		routes := h.Routes()
		if len(routes) != 1 || routes[0] != "/" {
			t.Errorf("expected the handler to own the root route, got %v", routes)
		}
	})
}
