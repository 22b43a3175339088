// Package api serves the stateless curve engine and read-only views of live
// editing sessions over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/closset/vectorcore/internal/auth"
	"github.com/closset/vectorcore/internal/bezier"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/render"
	"github.com/closset/vectorcore/internal/stitch"
)

const (
	maxBodyBytes   = 1 << 20
	maxPreviewSide = 2048
	// maxEvaluateSamples bounds the samples one evaluate request may ask for.
	maxEvaluateSamples = 10000
)

// Documents exposes the documents of live editing sessions.
type Documents interface {
	Document(ctx context.Context, docID string) (*document.Document, error)
}

// ErrNoDocument is returned by Documents when no session holds the document.
var ErrNoDocument = errors.New("document not found")

type Handler struct {
	docs Documents
}

func NewHandler(docs Documents) *Handler {
	return &Handler{docs: docs}
}

// Register mounts the routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/curves/smooth", h.Smooth).Methods("POST")
	r.HandleFunc("/curves/evaluate", h.Evaluate).Methods("POST")
	r.HandleFunc("/controls", h.Controls).Methods("POST")
	r.HandleFunc("/paths/validate", h.Validate).Methods("POST")
	r.HandleFunc("/paths/preview", h.Preview).Methods("POST")
	r.HandleFunc("/stitches", h.Stitches).Methods("POST")
	if h.docs != nil {
		r.HandleFunc("/documents/{docId}", h.GetDocument).Methods("GET")
		r.HandleFunc("/documents/{docId}/preview", h.DocumentPreview).Methods("GET")
		r.HandleFunc("/documents/{docId}/stitches", h.DocumentStitches).Methods("GET")
	}
}

type smoothRequest struct {
	Points []geom.Point `json:"points"`
}

func (h *Handler) Smooth(w http.ResponseWriter, r *http.Request) {
	var req smoothRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Points) < 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least two points are required"})
		return
	}
	curves := bezier.GenerateSmoothCurve(req.Points)
	if curves == nil {
		curves = []bezier.Curve{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"curves": curves})
}

type evaluateRequest struct {
	Curve   bezier.Curve `json:"curve"`
	T       []float64    `json:"t"`
	Samples int          `json:"samples"`
}

// Evaluate samples a curve at the given parameters, or at Samples evenly
// spaced parameters when none are given.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decode(w, r, &req) {
		return
	}
	ts := req.T
	if len(ts) == 0 && req.Samples > 1 {
		if req.Samples > maxEvaluateSamples {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many samples"})
			return
		}
		ts = make([]float64, req.Samples)
		for i := range ts {
			ts[i] = float64(i) / float64(req.Samples-1)
		}
	}
	if len(ts) == 0 || len(ts) > maxEvaluateSamples {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "t or samples is required"})
		return
	}
	points := make([]geom.Point, len(ts))
	for i, t := range ts {
		points[i] = bezier.EvaluateCurve(req.Curve, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"points": points,
		"bounds": bezier.CalculateCurveBounds(req.Curve),
	})
}

type controlsRequest struct {
	Prev        *geom.Point         `json:"prev"`
	Current     geom.Point          `json:"current"`
	Next        *geom.Point         `json:"next"`
	Constraints *bezier.Constraints `json:"constraints"`
}

func (h *Handler) Controls(w http.ResponseWriter, r *http.Request) {
	var req controlsRequest
	if !decode(w, r, &req) {
		return
	}
	c := bezier.DefaultConstraints()
	if req.Constraints != nil {
		c = *req.Constraints
	}
	writeJSON(w, http.StatusOK, bezier.CalculateControlPoints(req.Prev, req.Current, req.Next, c))
}

type validateRequest struct {
	Points []document.VectorPoint `json:"points"`
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, bezier.ValidateAndRepair(req.Points))
}

// Preview rasterizes a posted document to PNG.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	opts, ok := previewOptions(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	doc, err := document.Parse(buf.Bytes())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writePNG(w, doc, opts)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) DocumentPreview(w http.ResponseWriter, r *http.Request) {
	opts, ok := previewOptions(w, r)
	if !ok {
		return
	}
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	writePNG(w, doc, opts)
}

type stitchRequest struct {
	Points []geom.Point `json:"points"`
	stitch.Options
}

// Stitches plans a stitch run along a freehand polyline.
func (h *Handler) Stitches(w http.ResponseWriter, r *http.Request) {
	req := stitchRequest{Options: stitch.DefaultOptions()}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Points) < 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least two points are required"})
		return
	}
	if len(req.Points) > maxEvaluateSamples {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many points"})
		return
	}
	plan, err := stitch.FromPoints(req.Points, req.Options)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// DocumentStitches plans every path of a live document. Options come from
// the query string.
func (h *Handler) DocumentStitches(w http.ResponseWriter, r *http.Request) {
	opts, ok := stitchOptions(w, r)
	if !ok {
		return
	}
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	plan, err := stitch.FromDocument(doc, opts)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func stitchOptions(w http.ResponseWriter, r *http.Request) (stitch.Options, bool) {
	opts := stitch.DefaultOptions()
	q := r.URL.Query()
	if v := q.Get("strategy"); v != "" {
		opts.Strategy = stitch.Strategy(v)
	}
	if v := q.Get("passes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 16 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid passes"})
			return opts, false
		}
		opts.Passes = n
	}
	for name, dst := range map[string]*float64{
		"density":     &opts.Density,
		"widthMm":     &opts.WidthMM,
		"stitchLenMm": &opts.StitchLenMM,
		"mmPerPx":     &opts.MMPerPx,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
			return opts, false
		}
		*dst = f
	}
	if err := opts.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return opts, false
	}
	return opts, true
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	docID := mux.Vars(r)["docId"]
	doc, err := h.docs.Document(r.Context(), docID)
	switch {
	case errors.Is(err, ErrNoDocument):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return nil, false
	case err != nil:
		slog.Error("load document failed", "doc", docID, "user", auth.UserIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, false
	}
	return doc, true
}

func previewOptions(w http.ResponseWriter, r *http.Request) (render.RasterOptions, bool) {
	opts := render.DefaultRasterOptions()
	q := r.URL.Query()
	for name, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPreviewSide {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
			return opts, false
		}
		*dst = n
	}
	return opts, true
}

func writePNG(w http.ResponseWriter, doc *document.Document, opts render.RasterOptions) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, render.Rasterize(doc, opts)); err != nil {
		slog.Error("encode preview failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
