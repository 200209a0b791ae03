package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/abhisek/examdiag/internal/batch"
	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/paper"
	"github.com/abhisek/examdiag/internal/recognition"
)

// maxBodyBytes caps request bodies. Recognition payloads with many
// polygons are the largest inputs.
const maxBodyBytes = 8 << 20

// BatchDiagnoseRequest is the body of POST /api/v1/paper/batch-diagnose.
// Questions are raw records and go through the normalizer.
type BatchDiagnoseRequest struct {
	Questions []paper.Record `json:"questions"`
	Answers   []paper.Answer `json:"answers"`
}

// DiagnoseRequest is the body of POST /api/v1/diagnose. A null or missing
// answer means unanswered.
type DiagnoseRequest struct {
	Question paper.Record `json:"question"`
	Answer   *string      `json:"answer"`
}

// NormalizeRequest is the body of POST /api/v1/questions/normalize.
type NormalizeRequest struct {
	Questions []paper.Record `json:"questions"`
}

// QuestionsResponse lists canonical questions.
type QuestionsResponse struct {
	PageTitle string           `json:"page_title,omitempty"`
	Questions []paper.Question `json:"questions"`
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BatchDiagnoseHandler diagnoses a whole paper in one call.
func BatchDiagnoseHandler(svc Diagnoser, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchDiagnoseRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Questions) == 0 {
			writeError(w, http.StatusBadRequest, "questions must not be empty")
			return
		}

		questions, err := paper.NormalizeAll(req.Questions)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.Diagnose(r.Context(), questions, req.Answers)
		if err != nil {
			if batch.IsInvalidInput(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error("batch diagnosis failed", "error", err)
			writeError(w, http.StatusInternalServerError, "batch diagnosis failed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DiagnoseHandler judges one question. Oracle failures come back as a
// degraded verdict with status 200.
func DiagnoseHandler(svc Diagnoser, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DiagnoseRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Question == nil {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}
		q, err := paper.Normalize(req.Question)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		a := &paper.Answer{QuestionIndex: q.Index, RawText: req.Answer}
		v, err := svc.DiagnoseOne(r.Context(), *q, a)
		if err != nil {
			if batch.IsInvalidInput(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error("diagnosis failed", "question_index", q.Index, "error", err)
			writeError(w, http.StatusInternalServerError, "diagnosis failed")
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// NormalizeHandler converts raw records into canonical questions.
func NormalizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NormalizeRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		questions, err := paper.NormalizeAll(req.Questions)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, QuestionsResponse{Questions: questions})
	}
}

// RecognizeHandler turns a structured recognition payload into canonical
// questions.
func RecognizeHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		p, err := recognition.ParsePaper(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		questions, err := paper.NormalizeAll(p.Records())
		if err != nil {
			var mq *paper.MalformedQuestionError
			if errors.As(err, &mq) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Debug("paper parsed", "page_title", p.PageTitle, "questions", len(questions))
		writeJSON(w, http.StatusOK, QuestionsResponse{PageTitle: p.PageTitle, Questions: questions})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
