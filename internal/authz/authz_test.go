package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type fakeAuthorizer struct {
	allowed bool
	err     error
}

func (f fakeAuthorizer) CanManage(context.Context, uuid.UUID, int64) (bool, error) {
	return f.allowed, f.err
}

func TestRequireOwner(t *testing.T) {
	qnUID := uuid.New().String()

	newRequest := func(userHeader string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/q/"+qnUID, nil)
		if userHeader != "" {
			r.Header.Set("X-User-ID", userHeader)
		}
		return r
	}

	serve := func(a Authorizer, r *http.Request) *httptest.ResponseRecorder {
		router := chi.NewRouter()
		router.With(RequireOwner(a)).Get("/q/{uid}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec
	}

	t.Run("owner passes", func(t *testing.T) {
		rec := serve(fakeAuthorizer{allowed: true}, newRequest("7"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		rec := serve(fakeAuthorizer{allowed: false}, newRequest("7"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("missing user header unauthorized", func(t *testing.T) {
		rec := serve(fakeAuthorizer{allowed: true}, newRequest(""))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("unknown questionnaire not found", func(t *testing.T) {
		rec := serve(fakeAuthorizer{err: ErrQuestionnaireNotFound}, newRequest("7"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
