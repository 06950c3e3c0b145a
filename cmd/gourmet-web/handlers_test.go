package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fpang/gourmet-lens/internal/chat"
	"github.com/fpang/gourmet-lens/internal/editor"
	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/fpang/gourmet-lens/internal/store"
	"github.com/fpang/gourmet-lens/internal/studio"
)

type fakeGenerator struct {
	img  imaging.Handle
	err  error
	last studio.Request
}

func (f *fakeGenerator) Generate(_ context.Context, dish, desc string, style prompt.Style) (imaging.Handle, error) {
	f.last = studio.Request{DishName: dish, Description: desc, Style: style}
	return f.img, f.err
}

type fakeEditor struct {
	out imaging.Handle
	err error
}

func (f *fakeEditor) Edit(context.Context, imaging.Handle, string) (imaging.Handle, error) {
	return f.out, f.err
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	handler http.Handler
	gen     *fakeGenerator
	ed      *fakeEditor
	studio  *studio.Studio
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gen := &fakeGenerator{img: imaging.New("image/jpeg", testJPEG(t, 800, 600))}
	ed := &fakeEditor{out: imaging.New("image/png", []byte("edited-png"))}
	st := studio.New(gen, ed)
	srv := newServer(st, 200)
	srv.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return &testEnv{handler: newRouter(srv), gen: gen, ed: ed, studio: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rr.Body.String())
	}
	return v
}

func (e *testEnv) createRecord(t *testing.T) store.Record {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/images", `{"dishName":"Smashburger","description":"melting cheddar","style":"SOCIAL"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decode[store.Record](t, rr)
}

func (e *testEnv) openSession(t *testing.T, recordID string) editor.View {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/images/"+recordID+"/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decode[editor.View](t, rr)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCatalog(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/api/catalog", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode[catalogResponse](t, rr)
	if len(body.Styles) != 3 || len(body.Presets) == 0 || body.DefaultStyle != prompt.StyleModern {
		t.Errorf("unexpected catalog: %+v", body)
	}
	if strings.Contains(rr.Body.String(), "descriptor") {
		t.Error("prompt descriptors should not be exposed")
	}
}

func TestCreateImage(t *testing.T) {
	e := newTestEnv(t)
	rec := e.createRecord(t)

	if rec.ID == "" || rec.DishName != "Smashburger" || rec.Style != prompt.StyleSocial {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !strings.HasPrefix(rec.Image.DataURI(), "data:image/jpeg;base64,") {
		t.Errorf("unexpected image handle")
	}

	rr := e.do(t, http.MethodGet, "/api/images", "")
	list := decode[[]store.Record](t, rr)
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("unexpected list: %d records", len(list))
	}

	rr = e.do(t, http.MethodGet, "/api/images/"+rec.ID, "")
	if rr.Code != http.StatusOK || decode[store.Record](t, rr).ID != rec.ID {
		t.Errorf("GET by id failed: %d", rr.Code)
	}
}

func TestCreateImage_Preset(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPost, "/api/images", `{"preset":"us2"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if e.gen.last.DishName != "New York Cheesecake" || e.gen.last.Style != prompt.StyleModern {
		t.Errorf("preset not applied: %+v", e.gen.last)
	}
}

func TestCreateImage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		genErr   error
		wantCode int
		wantMsg  string
	}{
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest},
		{name: "missing dish", body: `{"description":"x"}`, wantCode: http.StatusBadRequest},
		{name: "bad style", body: `{"dishName":"a","description":"b","style":"NEON"}`, wantCode: http.StatusBadRequest},
		{name: "bad preset", body: `{"preset":"zz9"}`, wantCode: http.StatusBadRequest},
		{
			name:     "remote failure",
			body:     `{"dishName":"a","description":"b"}`,
			genErr:   &chat.GenerationError{Model: "m", Err: errors.New("quota")},
			wantCode: http.StatusBadGateway,
			wantMsg:  "Generation failed.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.gen.err = tt.genErr
			rr := e.do(t, http.MethodPost, "/api/images", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantMsg != "" {
				if got := decode[errorResponse](t, rr).Error; got != tt.wantMsg {
					t.Errorf("error = %q, want %q", got, tt.wantMsg)
				}
			}
			if len(e.studio.Records()) != 0 {
				t.Error("no record should be created")
			}
		})
	}
}

func TestImageNotFound(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/api/images/nope", "/api/images/nope/thumbnail", "/api/images/nope/download"} {
		if rr := e.do(t, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, rr.Code)
		}
	}
	if rr := e.do(t, http.MethodPost, "/api/images/nope/sessions", ""); rr.Code != http.StatusNotFound {
		t.Errorf("open session: expected status 404, got %d", rr.Code)
	}
}

func TestThumbnail(t *testing.T) {
	e := newTestEnv(t)
	rec := e.createRecord(t)

	rr := e.do(t, http.MethodGet, "/api/images/"+rec.ID+"/thumbnail", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 150 {
		t.Errorf("thumbnail = %dx%d, want 200x150", cfg.Width, cfg.Height)
	}
}

func TestDownload(t *testing.T) {
	e := newTestEnv(t)
	rec := e.createRecord(t)

	rr := e.do(t, http.MethodGet, "/api/images/"+rec.ID+"/download", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="gourmet-lens-1700000000123.jpg"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.Equal(rr.Body.Bytes(), rec.Image.Data) {
		t.Error("download body should be the raw image bytes")
	}
}

func TestEditSessionFlow(t *testing.T) {
	e := newTestEnv(t)
	rec := e.createRecord(t)
	view := e.openSession(t, rec.ID)

	if len(view.Versions) != 1 || view.Current != 0 || view.RecordID != rec.ID {
		t.Fatalf("unexpected session: %+v", view)
	}

	rr := e.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/edits", `{"instruction":"add steam"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	view = decode[editor.View](t, rr)
	if len(view.Versions) != 2 || view.Current != 1 || view.Versions[1].MIMEType != "image/png" {
		t.Errorf("unexpected view after edit: %+v", view)
	}

	got, _ := e.studio.Record(rec.ID)
	if string(got.Image.Data) != "edited-png" {
		t.Error("record should carry the edited image")
	}

	rr = e.do(t, http.MethodPut, "/api/sessions/"+view.ID+"/current", `{"version":0}`)
	if rr.Code != http.StatusOK || decode[editor.View](t, rr).Current != 0 {
		t.Errorf("select version failed: %d %s", rr.Code, rr.Body.String())
	}
	got, _ = e.studio.Record(rec.ID)
	if string(got.Image.Data) != "edited-png" {
		t.Error("selecting a version must not change the record")
	}

	rr = e.do(t, http.MethodGet, "/api/sessions/"+view.ID+"/archive?method=zstd", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("archive: expected status 200, got %d", rr.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil {
		t.Fatalf("invalid archive: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "v0.jpg" || zr.File[1].Name != "v1.png" {
		t.Errorf("unexpected archive entries")
	}

	if rr := e.do(t, http.MethodDelete, "/api/sessions/"+view.ID, ""); rr.Code != http.StatusNoContent {
		t.Errorf("close: expected status 204, got %d", rr.Code)
	}
	if rr := e.do(t, http.MethodGet, "/api/sessions/"+view.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("closed session: expected status 404, got %d", rr.Code)
	}
}

func TestEditSession_Errors(t *testing.T) {
	e := newTestEnv(t)
	rec := e.createRecord(t)
	view := e.openSession(t, rec.ID)
	base := "/api/sessions/" + view.ID

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		editErr  error
		wantCode int
		wantMsg  string
	}{
		{name: "empty instruction", method: http.MethodPost, path: base + "/edits", body: `{"instruction":"  "}`, wantCode: http.StatusBadRequest},
		{name: "bad json", method: http.MethodPost, path: base + "/edits", body: `nope`, wantCode: http.StatusBadRequest},
		{
			name: "remote failure", method: http.MethodPost, path: base + "/edits", body: `{"instruction":"add basil"}`,
			editErr: &chat.EditError{Model: "m", Err: errors.New("boom")}, wantCode: http.StatusBadGateway, wantMsg: "Edit failed.",
		},
		{name: "missing version", method: http.MethodPut, path: base + "/current", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "version out of range", method: http.MethodPut, path: base + "/current", body: `{"version":5}`, wantCode: http.StatusBadRequest},
		{name: "bad archive method", method: http.MethodGet, path: base + "/archive?method=rar", wantCode: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodPost, path: "/api/sessions/edit-missing/edits", body: `{"instruction":"x"}`, wantCode: http.StatusNotFound},
		{name: "close unknown", method: http.MethodDelete, path: "/api/sessions/edit-missing", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.ed.err = tt.editErr
			rr := e.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantMsg != "" {
				if got := decode[errorResponse](t, rr).Error; got != tt.wantMsg {
					t.Errorf("error = %q, want %q", got, tt.wantMsg)
				}
			}
		})
	}

	sess, err := e.studio.Session(view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v := sess.Snapshot(); len(v.Versions) != 1 {
		t.Errorf("failed requests must not change history: %+v", v)
	}
}

func TestRespondErr_Conflict(t *testing.T) {
	for _, err := range []error{studio.ErrGenerationInFlight, editor.ErrEditInFlight, editor.ErrSessionClosed} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		respondErr(rr, req, err)
		if rr.Code != http.StatusConflict {
			t.Errorf("%v: expected status 409, got %d", err, rr.Code)
		}
	}
}

func TestCORS_LocalhostOnly(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", tt.origin)
		rr := httptest.NewRecorder()
		e.handler.ServeHTTP(rr, req)

		got := rr.Header().Get("Access-Control-Allow-Origin") == tt.origin
		if got != tt.want {
			t.Errorf("origin %s: allowed = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestGzip(t *testing.T) {
	e := newTestEnv(t)
	e.createRecord(t)

	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("expected gzip response, got Content-Encoding %q", rr.Header().Get("Content-Encoding"))
	}
}
