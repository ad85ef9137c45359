package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"surveyhub/internal/app/apiresp"
	"surveyhub/internal/questionnaire"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	svc exportService
}

type exportService interface {
	Workbook(ctx context.Context, questionnaireUID uuid.UUID) ([]byte, error)
}

func NewHandler(svc exportService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	qnUID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	blob, err := h.svc.Workbook(r.Context(), qnUID)
	if err != nil {
		switch {
		case errors.Is(err, questionnaire.ErrQuestionnaireNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	filename := fmt.Sprintf("questionnaire-%s.xlsx", qnUID)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}
