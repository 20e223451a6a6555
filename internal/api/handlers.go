// Package api exposes the prediction service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/rcliao/pinyin-predict/internal/decoder"
	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/rcliao/pinyin-predict/internal/predict"
	"github.com/rcliao/pinyin-predict/internal/store"
)

type APIHandler struct {
	svc      *predict.Service
	defaultK int
}

// NewAPIHandler wraps svc. defaultK is used when a predict request omits k.
func NewAPIHandler(svc *predict.Service, defaultK int) *APIHandler {
	if defaultK <= 0 {
		defaultK = 5
	}
	return &APIHandler{svc: svc, defaultK: defaultK}
}

// PredictRequest carries either pinyin spellings or resolved reading ids.
type PredictRequest struct {
	Pinyin   []string `json:"pinyin,omitempty"`
	Readings []int64  `json:"readings,omitempty"`
	// K defaults to the configured top_k when omitted. An explicit 0
	// yields no predictions.
	K        *int     `json:"k,omitempty"`
}

type PredictResponse struct {
	Predictions []predict.Prediction `json:"predictions"`
}

func (h *APIHandler) PredictHandler(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Pinyin) > 0 && len(req.Readings) > 0 {
		http.Error(w, "Provide either pinyin or readings, not both", http.StatusBadRequest)
		return
	}
	k := h.defaultK
	if req.K != nil {
		k = *req.K
	}

	var (
		preds []predict.Prediction
		err   error
	)
	if len(req.Pinyin) > 0 {
		preds, err = h.svc.PredictPinyin(r.Context(), req.Pinyin, k)
	} else {
		preds, err = h.svc.Predict(r.Context(), req.Readings, k)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownReading), errors.Is(err, decoder.ErrNoCandidates):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			log.Printf("Error predicting %v%v: %v", req.Pinyin, req.Readings, err)
			http.Error(w, "Failed to predict", http.StatusInternalServerError)
		}
		return
	}
	if preds == nil {
		preds = []predict.Prediction{}
	}

	writeJSON(w, http.StatusOK, PredictResponse{Predictions: preds})
}

type RecordRequest struct {
	Phrase model.Phrase `json:"phrase"`
}

func (h *APIHandler) RecordHandler(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Phrase) == 0 {
		http.Error(w, "Phrase is required", http.StatusBadRequest)
		return
	}

	ev, err := h.svc.RecordUsed(r.Context(), req.Phrase)
	if err != nil {
		writeTrainingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// UndoRequest selects what to reverse: a journaled event by id, the most
// recent event, or an explicit phrase.
type UndoRequest struct {
	ID     string       `json:"id,omitempty"`
	Last   bool         `json:"last,omitempty"`
	Phrase model.Phrase `json:"phrase,omitempty"`
}

func (h *APIHandler) UndoHandler(w http.ResponseWriter, r *http.Request) {
	var req UndoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		ev  *model.TrainEvent
		err error
	)
	switch {
	case req.ID != "":
		ev, err = h.svc.UndoEvent(r.Context(), req.ID)
	case req.Last:
		ev, err = h.svc.UndoLast(r.Context())
	case len(req.Phrase) > 0:
		err = h.svc.UndoUsed(r.Context(), req.Phrase)
	default:
		http.Error(w, "One of id, last or phrase is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeTrainingError(w, err)
		return
	}

	if ev == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "phrase": req.Phrase})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	all := r.URL.Query().Get("all") == "true"

	events, err := h.svc.History(r.Context(), limit, all)
	if err != nil {
		log.Printf("Error listing history: %v", err)
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.TrainEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

func writeTrainingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrEventNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrUnknownWord):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("Error applying training: %v", err)
		http.Error(w, "Training failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
