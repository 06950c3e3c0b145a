package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fpang/gourmet-lens/internal/chat"
	"github.com/fpang/gourmet-lens/internal/editor"
	"github.com/fpang/gourmet-lens/internal/prompt"
	"github.com/fpang/gourmet-lens/internal/store"
	"google.golang.org/genai"
)

// fakeModels stands in for the Gemini Models service so the real
// chat.Generator and chat.Editor run end to end.
type fakeModels struct {
	mu         sync.Mutex
	prompts    []string
	editInputs []*genai.Blob
	editTexts  []string
	imagesErr  error
	contentErr error
	entered    chan struct{}
	gate       chan struct{}
}

func (f *fakeModels) GenerateImages(_ context.Context, _, p string, _ *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	return &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{{
		Image: &genai.Image{MIMEType: "image/jpeg", ImageBytes: []byte("generated")},
	}}}, nil
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.editInputs = append(f.editInputs, contents[0].Parts[0].InlineData)
	f.editTexts = append(f.editTexts, contents[0].Parts[1].Text)
	n := len(f.editInputs)
	f.mu.Unlock()

	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("edited-" + string(rune('0'+n)))},
		}}},
	}}}, nil
}

func newTestStudio(models *fakeModels) *Studio {
	return New(chat.NewGenerator(models, ""), chat.NewEditor(models, ""))
}

func TestSmashburgerEndToEnd(t *testing.T) {
	models := &fakeModels{}
	s := newTestStudio(models)
	ctx := context.Background()

	rec, err := s.Generate(ctx, Request{DishName: "Smashburger", Description: "melting cheddar", Style: prompt.StyleSocial})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(models.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(models.prompts))
	}
	p := models.prompts[0]
	if !strings.HasPrefix(p, "A delicious, high-end professional photo of Smashburger. melting cheddar. ") {
		t.Errorf("unexpected prompt: %q", p)
	}
	if !strings.HasSuffix(p, prompt.StyleSocial.Descriptor()) {
		t.Errorf("prompt should end with the SOCIAL descriptor: %q", p)
	}

	records := s.Records()
	if len(records) != 1 || records[0].ID != rec.ID {
		t.Fatalf("expected the new record at the front, got %+v", records)
	}
	original := rec.Image
	if original.DataURI() != "data:image/jpeg;base64,Z2VuZXJhdGVk" {
		t.Errorf("unexpected image handle %q", original.DataURI())
	}

	sess, err := s.OpenEditor(rec.ID)
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}
	if v := sess.Snapshot(); len(v.Versions) != 1 || !v.Versions[0].Equal(original) || v.Current != 0 {
		t.Fatalf("unexpected session view: %+v", v)
	}

	edited, err := sess.SubmitEdit(ctx, "add steam")
	if err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}

	if models.editTexts[0] != "Edit this image: add steam. Maintain photorealism suitable for a food menu." {
		t.Errorf("unexpected edit prompt %q", models.editTexts[0])
	}
	if string(models.editInputs[0].Data) != "generated" || models.editInputs[0].MIMEType != "image/jpeg" {
		t.Errorf("edit should receive the original image, got %+v", models.editInputs[0])
	}

	v := sess.Snapshot()
	if len(v.Versions) != 2 || !v.Versions[0].Equal(original) || !v.Versions[1].Equal(edited) || v.Current != 1 {
		t.Errorf("history should be [original, edited] at 1, got %+v", v)
	}
	if edited.MIMEType != "image/png" {
		t.Errorf("edited MIME = %q, want image/png", edited.MIMEType)
	}

	got, err := s.Record(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Image.Equal(edited) {
		t.Error("record image should be the edited version")
	}
	if got.DishName != "Smashburger" || got.Description != "melting cheddar" || got.Style != prompt.StyleSocial || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("record metadata changed: %+v", got)
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "blank dish", req: Request{DishName: "  ", Description: "crispy"}},
		{name: "blank description", req: Request{DishName: "Tacos", Description: ""}},
		{name: "unknown style", req: Request{DishName: "Tacos", Description: "al pastor", Style: "NEON"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{}
			s := newTestStudio(models)
			_, err := s.Generate(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if len(models.prompts) != 0 || len(s.Records()) != 0 {
				t.Error("invalid request must not call the model or create a record")
			}
		})
	}
}

func TestGenerate_DefaultStyle(t *testing.T) {
	s := newTestStudio(&fakeModels{})
	rec, err := s.Generate(context.Background(), Request{DishName: "Ramen", Description: "rich broth"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Style != prompt.DefaultStyle {
		t.Errorf("style = %q, want %q", rec.Style, prompt.DefaultStyle)
	}
}

func TestGenerate_FailureCreatesNothing(t *testing.T) {
	s := newTestStudio(&fakeModels{imagesErr: errors.New("quota")})

	_, err := s.Generate(context.Background(), Request{DishName: "Pho", Description: "herbs"})
	var genErr *chat.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *chat.GenerationError, got %v", err)
	}
	if len(s.Records()) != 0 {
		t.Error("failed generation must not create a record")
	}
	if s.Generating() {
		t.Error("studio should be idle after a failure")
	}

	// A new attempt is allowed.
	s.generator = chat.NewGenerator(&fakeModels{}, "")
	if _, err := s.Generate(context.Background(), Request{DishName: "Pho", Description: "herbs"}); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestGenerate_RejectsReentry(t *testing.T) {
	models := &fakeModels{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	s := newTestStudio(models)

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), Request{DishName: "Paella", Description: "saffron"})
		done <- err
	}()
	<-models.entered

	if _, err := s.Generate(context.Background(), Request{DishName: "Paella", Description: "saffron"}); !errors.Is(err, ErrGenerationInFlight) {
		t.Errorf("expected ErrGenerationInFlight, got %v", err)
	}

	close(models.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(models.prompts) != 1 || len(s.Records()) != 1 {
		t.Errorf("expected exactly one call and one record, got %d/%d", len(models.prompts), len(s.Records()))
	}
}

func TestGallery_NewestFirst(t *testing.T) {
	s := newTestStudio(&fakeModels{})
	var ids []string
	for _, dish := range []string{"A", "B", "C"} {
		rec, err := s.Generate(context.Background(), Request{DishName: dish, Description: "d"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}

	records := s.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.ID != ids[len(ids)-1-i] {
			t.Errorf("position %d: got %s, want %s", i, rec.ID, ids[len(ids)-1-i])
		}
	}
}

func TestOpenEditor_UnknownRecord(t *testing.T) {
	s := newTestStudio(&fakeModels{})
	if _, err := s.OpenEditor("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestEditFailure_RecordUnchanged(t *testing.T) {
	models := &fakeModels{}
	s := newTestStudio(models)
	rec, err := s.Generate(context.Background(), Request{DishName: "Curry", Description: "spicy"})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := s.OpenEditor(rec.ID)
	if err != nil {
		t.Fatal(err)
	}

	models.contentErr = errors.New("upstream")
	_, err = sess.SubmitEdit(context.Background(), "add naan")
	var editErr *chat.EditError
	if !errors.As(err, &editErr) {
		t.Fatalf("expected *chat.EditError, got %v", err)
	}

	got, _ := s.Record(rec.ID)
	if !got.Image.Equal(rec.Image) {
		t.Error("failed edit must leave the record image unchanged")
	}
	if sess.LastError() == nil {
		t.Error("session should carry the failure")
	}
}

func TestSelectThenClose_RecordKeepsLatestEdit(t *testing.T) {
	s := newTestStudio(&fakeModels{})
	rec, err := s.Generate(context.Background(), Request{DishName: "Salad", Description: "fresh"})
	if err != nil {
		t.Fatal(err)
	}
	sess, _ := s.OpenEditor(rec.ID)
	edited, err := sess.SubmitEdit(context.Background(), "add croutons")
	if err != nil {
		t.Fatal(err)
	}

	if err := sess.SelectVersion(0); err != nil {
		t.Fatal(err)
	}
	if err := s.CloseEditor(sess.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Record(rec.ID)
	if !got.Image.Equal(edited) {
		t.Error("record should keep the last successful edit after selecting an older version")
	}
	if _, err := s.Session(sess.ID); !errors.Is(err, editor.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	// Reopening starts fresh from the record's current image.
	reopened, err := s.OpenEditor(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v := reopened.Snapshot(); len(v.Versions) != 1 || !v.Versions[0].Equal(edited) {
		t.Errorf("reopened session should start from the edited image: %+v", v)
	}
}

func TestEditorFor_ReusesOpenSession(t *testing.T) {
	s := newTestStudio(&fakeModels{})
	rec, err := s.Generate(context.Background(), Request{DishName: "Toast", Description: "avocado"})
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.EditorFor(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.EditorFor(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("EditorFor should reuse the open session")
	}
	if found, ok := s.FindEditor(rec.ID); !ok || found != a {
		t.Error("FindEditor should return the open session")
	}

	s.Shutdown()
	if !a.Snapshot().Closed {
		t.Error("Shutdown should close open sessions")
	}
	if _, ok := s.FindEditor(rec.ID); ok {
		t.Error("closed sessions should not be found")
	}
}
