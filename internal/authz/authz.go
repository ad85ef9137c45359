// Package authz answers the one question owner endpoints need: may this
// user manage this questionnaire. The decision is an interface so the rest
// of the code treats it as a black box.
package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"surveyhub/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var ErrQuestionnaireNotFound = errors.New("questionnaire not found")

// Authorizer decides whether a user may manage a questionnaire.
type Authorizer interface {
	CanManage(ctx context.Context, questionnaireUID uuid.UUID, userID int64) (bool, error)
}

// DBAuthorizer is the default owner check against the questionnaires table.
type DBAuthorizer struct {
	db *sql.DB
}

func NewDBAuthorizer(db *sql.DB) *DBAuthorizer {
	return &DBAuthorizer{db: db}
}

func (a *DBAuthorizer) CanManage(ctx context.Context, questionnaireUID uuid.UUID, userID int64) (bool, error) {
	var ownerID int64
	err := a.db.QueryRowContext(ctx, `
		SELECT owner_id FROM questionnaires
		WHERE uid = $1 AND is_deleted = FALSE
	`, questionnaireUID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrQuestionnaireNotFound
		}
		return false, fmt.Errorf("load questionnaire owner: %w", err)
	}
	return ownerID == userID, nil
}

// RequireOwner guards a {uid}-scoped route. The acting user arrives in the
// X-User-ID header; the surrounding deployment terminates real
// authentication in front of this service.
func RequireOwner(authorizer Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get("X-User-ID")), 10, 64)
			if err != nil || userID <= 0 {
				apiresp.WriteError(w, r, http.StatusUnauthorized, "missing or invalid X-User-ID")
				return
			}
			qnUID, err := uuid.Parse(chi.URLParam(r, "uid"))
			if err != nil {
				apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
				return
			}

			allowed, err := authorizer.CanManage(r.Context(), qnUID, userID)
			if err != nil {
				if errors.Is(err, ErrQuestionnaireNotFound) {
					apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
					return
				}
				apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
				return
			}
			if !allowed {
				apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
