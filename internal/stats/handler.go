package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"surveyhub/internal/app/apiresp"
	"surveyhub/internal/questionnaire"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	svc statsService
}

type statsService interface {
	Aggregate(ctx context.Context, questionnaireUID uuid.UUID) ([]QuestionResult, error)
	CompositePlot(ctx context.Context, questionnaireUID uuid.UUID, in CompositeInput) (*CompositeResult, error)
}

func NewHandler(svc statsService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	qnUID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	results, err := h.svc.Aggregate(r.Context(), qnUID)
	if err != nil {
		switch {
		case errors.Is(err, questionnaire.ErrQuestionnaireNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, results)
}

func (h *Handler) CompositePlot(w http.ResponseWriter, r *http.Request) {
	qnUID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	var in CompositeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CompositePlot(r.Context(), qnUID, in)
	if err != nil {
		var cerr *CompositeError
		switch {
		case errors.As(err, &cerr):
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"composite plot request rejected", cerr.Problems)
		case errors.Is(err, questionnaire.ErrQuestionnaireNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, result)
}
