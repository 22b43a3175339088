package export

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"

	"github.com/closset/vectorcore/internal/api"
	"github.com/closset/vectorcore/internal/document"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

const triangle = `{"id":"doc_t","name":"My Triangle!","paths":[{"id":"p","closed":true,"points":[
	{"x":0,"y":0,"type":"corner"},{"x":10,"y":0,"type":"corner"},{"x":10,"y":10,"type":"corner"}]}]}`

func mustDoc(t *testing.T, s string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

type fakeDocs map[string]*document.Document

func (f fakeDocs) Document(_ context.Context, id string) (*document.Document, error) {
	d, ok := f[id]
	if !ok {
		return nil, api.ErrNoDocument
	}
	return d.Clone(), nil
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, mustDoc(t, triangle), 10); err != nil {
		t.Fatal(err)
	}
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="-10 -10 30 30">
  <path id="p" d="M0 0 L10 0 L10 10 L0 0 Z" fill="none" stroke="#000000" stroke-width="1"/>
</svg>
`
	diff(t, want, buf.String())
}

func TestWriteSVGEscapes(t *testing.T) {
	doc := mustDoc(t, `{"id":"d","paths":[{"id":"a<b","style":{"fill":"\"red\"","stroke":"","strokeWidth":0.5,"opacity":0.25},
		"points":[{"x":0,"y":0,"type":"corner"},{"x":1.5,"y":2,"type":"corner"}]}]}`)
	var buf bytes.Buffer
	if err := WriteSVG(&buf, doc, 0); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{`id="a&lt;b"`, `d="M0 0 L1.5 2"`, `fill="&#34;red&#34;"`, `stroke="none"`, `stroke-width="0.5"`, `opacity="0.25"`} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("missing %s in\n%s", s, buf.String())
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My Triangle!", "My-Triangle-"},
		{"ok_name-1", "ok_name-1"},
		{"", "drawing"},
		{"../etc", "---etc"},
	}
	for _, tt := range tests {
		diff(t, tt.want, sanitize(tt.in))
	}
}

func newRouter(docs api.Documents) *mux.Router {
	r := mux.NewRouter()
	NewHandler(docs).Register(r.PathPrefix("/api").Subrouter())
	return r
}

func TestExportDocument(t *testing.T) {
	r := newRouter(fakeDocs{"doc_t": mustDoc(t, triangle)})

	tests := []struct {
		url         string
		code        int
		contentType string
		filename    string
	}{
		{"/api/documents/doc_t/export", http.StatusOK, "image/svg+xml", `attachment; filename="My-Triangle-.svg"`},
		{"/api/documents/doc_t/export?format=png&size=32", http.StatusOK, "image/png", `attachment; filename="My-Triangle-.png"`},
		{"/api/documents/doc_t/export?format=json&name=tri", http.StatusOK, "application/json", `attachment; filename="tri.json"`},
		{"/api/documents/doc_t/export?format=gif", http.StatusBadRequest, "", ""},
		{"/api/documents/missing/export", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("GET", tt.url, nil))
			if rec.Code != tt.code {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
			if tt.code != http.StatusOK {
				return
			}
			diff(t, tt.contentType, rec.Header().Get("Content-Type"))
			diff(t, tt.filename, rec.Header().Get("Content-Disposition"))
		})
	}
}

func TestExportPNGSize(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(fakeDocs{"doc_t": mustDoc(t, triangle)}).ServeHTTP(rec, httptest.NewRequest("GET", "/api/documents/doc_t/export?format=png&size=32", nil))
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, 32, img.Bounds().Dx())
}

func TestExportPosted(t *testing.T) {
	r := newRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/export?format=json", strings.NewReader(triangle)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var doc document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	diff(t, 1, len(doc.Paths))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/export", strings.NewReader(`{"paths":`)))
	diff(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/documents/doc_t/export", nil))
	diff(t, http.StatusNotFound, rec.Code)
}
