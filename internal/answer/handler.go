package answer

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
	svc answerService
}

type answerService interface {
	OpenAnswerSet(ctx context.Context, in OpenInput) (*AnswerSet, error)
	GetAnswerSet(ctx context.Context, setUID uuid.UUID) (*AnswerSet, []Answer, error)
	SubmitAnswers(ctx context.Context, setUID uuid.UUID, items []SubmitItem) ([]Answer, error)
}

func NewHandler(svc answerService) *Handler {
	return &Handler{svc: svc}
}

type openRequest struct {
	QuestionnaireUID string `json:"questionnaire_uid"`
	AccessCode       string `json:"access_code"`
	AnsweredBy       *int64 `json:"answered_by"`
}

type submitRequest struct {
	Answers []SubmitItem `json:"answers"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	qnUID, err := uuid.Parse(req.QuestionnaireUID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid questionnaire_uid")
		return
	}

	set, err := h.svc.OpenAnswerSet(r.Context(), OpenInput{
		QuestionnaireUID: qnUID,
		AccessCode:       req.AccessCode,
		AnsweredBy:       req.AnsweredBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, questionnaire.ErrQuestionnaireNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "questionnaire not found")
		case errors.Is(err, ErrQuestionnaireClosed):
			apiresp.WriteError(w, r, http.StatusForbidden, "questionnaire is not accepting answers")
		case errors.Is(err, ErrAccessCodeRequired):
			apiresp.WriteError(w, r, http.StatusUnauthorized, "access code required")
		case errors.Is(err, ErrAccessCodeInvalid):
			apiresp.WriteError(w, r, http.StatusUnauthorized, "access code is incorrect")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, set)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	setUID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid answer set uid")
		return
	}
	set, answers, err := h.svc.GetAnswerSet(r.Context(), setUID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAnswerSetNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "answer set not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]interface{}{
		"answer_set": set,
		"answers":    answers,
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	setUID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid answer set uid")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Answers) == 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "answers is required")
		return
	}

	stored, err := h.svc.SubmitAnswers(r.Context(), setUID, req.Answers)
	if err != nil {
		var submitErr *SubmitError
		switch {
		case errors.As(err, &submitErr):
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"one or more answers failed validation", submitErr.PerQuestion)
		case errors.Is(err, ErrAnswerSetNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "answer set not found")
		case errors.Is(err, ErrQuestionNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "question does not belong to this questionnaire")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, stored)
}
