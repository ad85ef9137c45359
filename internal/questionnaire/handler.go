package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"surveyhub/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	svc questionnaireService
}

type questionnaireService interface {
	CreateQuestionnaire(ctx context.Context, in CreateQuestionnaireInput) (*Questionnaire, error)
	GetByUID(ctx context.Context, uid uuid.UUID) (*Questionnaire, error)
	Questions(ctx context.Context, uid uuid.UUID) ([]Question, error)
	SoftDelete(ctx context.Context, uid uuid.UUID) error
	AddQuestion(ctx context.Context, questionnaireUID uuid.UUID, in AddQuestionInput) (*Question, error)
	ReorderPlacements(ctx context.Context, questionnaireUID uuid.UUID, orderedIDs []int64) error
	Clone(ctx context.Context, in CloneInput) (*Questionnaire, error)
}

func NewHandler(svc questionnaireService) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	OwnerID      int64           `json:"owner_id"`
	FolderID     *int64          `json:"folder_id"`
	Name         string          `json:"name"`
	PubDate      string          `json:"pub_date"`
	EndDate      string          `json:"end_date"`
	TimerSeconds *int            `json:"timer_seconds"`
	AccessCode   string          `json:"access_code"`
	WelcomePage  json.RawMessage `json:"welcome_page"`
	ThanksPage   json.RawMessage `json:"thanks_page"`
}

type reorderRequest struct {
	QuestionIDs []int64 `json:"question_ids"`
}

type cloneRequest struct {
	NewOwnerID int64  `json:"new_owner_id"`
	FolderID   *int64 `json:"folder_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	pubDate, err := parseOptionalTime(req.PubDate)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "pub_date must be RFC3339")
		return
	}
	endDate, err := parseOptionalTime(req.EndDate)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "end_date must be RFC3339")
		return
	}

	qn, err := h.svc.CreateQuestionnaire(r.Context(), CreateQuestionnaireInput{
		OwnerID:      req.OwnerID,
		FolderID:     req.FolderID,
		Name:         req.Name,
		PubDate:      pubDate,
		EndDate:      endDate,
		TimerSeconds: req.TimerSeconds,
		AccessCode:   req.AccessCode,
		WelcomePage:  req.WelcomePage,
		ThanksPage:   req.ThanksPage,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, qn)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	qn, err := h.svc.GetByUID(r.Context(), uid)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	questions, err := h.svc.Questions(r.Context(), uid)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]interface{}{
		"questionnaire": qn,
		"questions":     questions,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	if err := h.svc.SoftDelete(r.Context(), uid); err != nil {
		writeLookupError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	var req AddQuestionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.svc.AddQuestion(r.Context(), uid, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNestedGroup):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrQuestionnaireNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrNotAGroup):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, q)
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.QuestionIDs) == 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "question_ids is required")
		return
	}

	if err := h.svc.ReorderPlacements(r.Context(), uid, req.QuestionIDs); err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrQuestionnaireNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
		case errors.Is(err, ErrQuestionNotFound):
			apiresp.WriteError(w, r, http.StatusBadRequest, "a listed question does not belong to this questionnaire")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "reordered"})
}

func (h *Handler) Clone(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire uid")
		return
	}
	var req cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewOwnerID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "new_owner_id is required")
		return
	}

	clone, err := h.svc.Clone(r.Context(), CloneInput{
		TemplateUID: uid,
		NewOwnerID:  req.NewOwnerID,
		FolderID:    req.FolderID,
	})
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, clone)
}

func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrQuestionnaireNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseOptionalTime(raw string) (*time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
