// Package export serves document downloads as SVG, PNG or JSON.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/closset/vectorcore/internal/api"
	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/render"
)

const (
	maxUploadSize = 4 << 20
	svgPadding    = 10
)

var contentTypes = map[string]string{
	"svg":  "image/svg+xml",
	"png":  "image/png",
	"json": "application/json",
}

type Handler struct {
	docs api.Documents
}

func NewHandler(docs api.Documents) *Handler {
	return &Handler{docs: docs}
}

// Register mounts the routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/export", h.ExportPosted).Methods("POST")
	if h.docs != nil {
		r.HandleFunc("/documents/{docId}/export", h.ExportDocument).Methods("GET")
	}
}

// ExportPosted converts a document sent in the request body.
func (h *Handler) ExportPosted(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}
	doc, err := document.Parse(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.export(w, r, doc)
}

// ExportDocument converts the document of a live or saved session.
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["docId"]
	doc, err := h.docs.Document(r.Context(), docID)
	if errors.Is(err, api.ErrNoDocument) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load document", "doc", docID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.export(w, r, doc)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, doc *document.Document) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "svg"
	}
	contentType, ok := contentTypes[format]
	if !ok {
		http.Error(w, "invalid format: must be svg, png, or json", http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = doc.Name
	}
	name = sanitize(name)

	var out bytes.Buffer
	var err error
	switch format {
	case "svg":
		err = WriteSVG(&out, doc, svgPadding)
	case "png":
		opts := render.DefaultRasterOptions()
		if n, convErr := strconv.Atoi(r.URL.Query().Get("size")); convErr == nil && n > 0 && n <= 4096 {
			opts.Width, opts.Height = n, n
		}
		err = png.Encode(&out, render.Rasterize(doc, opts))
	case "json":
		err = json.NewEncoder(&out).Encode(doc)
	}
	if err != nil {
		slog.Error("export failed", "format", format, "error", err)
		http.Error(w, fmt.Sprintf("encoding failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.Write(out.Bytes())

	slog.Info("export complete", "format", format, "paths", len(doc.Paths), "size", out.Len())
}

// sanitize keeps file names to letters, digits, dashes and underscores.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	if name == "" {
		return "drawing"
	}
	return name
}
