package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/gourmet-lens/internal/chat"
	"github.com/fpang/gourmet-lens/internal/editor"
	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/fpang/gourmet-lens/internal/store"
	"github.com/fpang/gourmet-lens/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type generateInput struct {
	DishName    string `json:"dish_name,omitempty" jsonschema:"name of the dish, e.g. Smashburger"`
	Description string `json:"description,omitempty" jsonschema:"what the dish looks like: ingredients, garnish, plating"`
	Style       string `json:"style,omitempty" jsonschema:"photography style: RUSTIC, MODERN or SOCIAL (default MODERN)"`
	Preset      string `json:"preset,omitempty" jsonschema:"catalog preset id that fills any empty field"`
}

type listInput struct{}

type editInput struct {
	RecordID    string `json:"record_id" jsonschema:"id of the photo to edit"`
	Instruction string `json:"instruction" jsonschema:"natural-language edit, e.g. add steam rising from the bowl"`
}

type selectInput struct {
	RecordID string `json:"record_id" jsonschema:"id of the photo being edited"`
	Version  int    `json:"version" jsonschema:"zero-based index into the edit history"`
}

type closeInput struct {
	RecordID string `json:"record_id" jsonschema:"id of the photo being edited"`
}

// photoSummary is the text half of every tool result.
type photoSummary struct {
	ID          string    `json:"id"`
	DishName    string    `json:"dish_name"`
	Description string    `json:"description"`
	Style       string    `json:"style"`
	MIMEType    string    `json:"mime_type"`
	Bytes       int       `json:"bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

type sessionSummary struct {
	RecordID  string `json:"record_id"`
	SessionID string `json:"session_id"`
	Version   int    `json:"version"`
	Versions  int    `json:"versions"`
	MIMEType  string `json:"mime_type"`
}

func summarize(rec store.Record) photoSummary {
	return photoSummary{
		ID:          rec.ID,
		DishName:    rec.DishName,
		Description: rec.Description,
		Style:       string(rec.Style),
		MIMEType:    rec.Image.MIMEType,
		Bytes:       len(rec.Image.Data),
		CreatedAt:   rec.CreatedAt,
	}
}

type toolset struct {
	studio *studio.Studio
}

func (ts *toolset) register(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "generate_dish_photo",
		Description: "Generate a professional food photo from a dish name, a description and a photography style. Returns the image and its record id.",
	}, ts.generate)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_dish_photos",
		Description: "List generated dish photos, newest first.",
	}, ts.list)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "edit_dish_photo",
		Description: "Apply a natural-language edit to a photo. Opens an edit session for the record or continues the open one; each success adds a version.",
	}, ts.edit)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "select_dish_photo_version",
		Description: "Show an earlier version from a photo's edit history. The next edit starts from the selected version.",
	}, ts.selectVersion)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "close_dish_photo_editor",
		Description: "Close the edit session for a photo. The photo keeps the result of its last successful edit.",
	}, ts.closeEditor)
}

func (ts *toolset) generate(ctx context.Context, _ *mcp.CallToolRequest, in generateInput) (*mcp.CallToolResult, any, error) {
	req, err := studio.Draft{
		DishName:    in.DishName,
		Description: in.Description,
		Style:       in.Style,
		Preset:      in.Preset,
	}.Resolve()
	if err != nil {
		return toolError(err), nil, nil
	}

	rec, err := ts.studio.Generate(ctx, req)
	if err != nil {
		return toolError(err), nil, nil
	}
	return imageResult(rec.Image, summarize(rec)), nil, nil
}

func (ts *toolset) list(context.Context, *mcp.CallToolRequest, listInput) (*mcp.CallToolResult, any, error) {
	records := ts.studio.Records()
	out := make([]photoSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, summarize(rec))
	}
	return textResult(out), nil, nil
}

func (ts *toolset) edit(ctx context.Context, _ *mcp.CallToolRequest, in editInput) (*mcp.CallToolResult, any, error) {
	sess, err := ts.studio.EditorFor(in.RecordID)
	if err != nil {
		return toolError(err), nil, nil
	}
	if _, err := sess.SubmitEdit(ctx, in.Instruction); err != nil {
		return toolError(err), nil, nil
	}
	return sessionResult(sess), nil, nil
}

func (ts *toolset) selectVersion(_ context.Context, _ *mcp.CallToolRequest, in selectInput) (*mcp.CallToolResult, any, error) {
	sess, ok := ts.studio.FindEditor(in.RecordID)
	if !ok {
		return toolError(fmt.Errorf("%w: no open editor for %s", editor.ErrSessionNotFound, in.RecordID)), nil, nil
	}
	if err := sess.SelectVersion(in.Version); err != nil {
		return toolError(err), nil, nil
	}
	return sessionResult(sess), nil, nil
}

func (ts *toolset) closeEditor(_ context.Context, _ *mcp.CallToolRequest, in closeInput) (*mcp.CallToolResult, any, error) {
	sess, ok := ts.studio.FindEditor(in.RecordID)
	if !ok {
		return toolError(fmt.Errorf("%w: no open editor for %s", editor.ErrSessionNotFound, in.RecordID)), nil, nil
	}
	if err := ts.studio.CloseEditor(sess.ID); err != nil {
		return toolError(err), nil, nil
	}
	rec, err := ts.studio.Record(in.RecordID)
	if err != nil {
		return toolError(err), nil, nil
	}
	return textResult(summarize(rec)), nil, nil
}

func sessionResult(sess *editor.Session) *mcp.CallToolResult {
	view := sess.Snapshot()
	current := view.Versions[view.Current]
	return imageResult(current, sessionSummary{
		RecordID:  view.RecordID,
		SessionID: view.ID,
		Version:   view.Current,
		Versions:  len(view.Versions),
		MIMEType:  current.MIMEType,
	})
}

func imageResult(h imaging.Handle, summary any) *mcp.CallToolResult {
	res := textResult(summary)
	res.Content = append(res.Content, &mcp.ImageContent{Data: h.Data, MIMEType: h.MIMEType})
	return res
}

func textResult(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}
}

// toolError reports a failure inside the tool result so the calling model
// can see it. Remote failures carry only the short user message.
func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	var genErr *chat.GenerationError
	var editErr *chat.EditError
	switch {
	case errors.As(err, &genErr):
		msg = "Generation failed."
	case errors.As(err, &editErr):
		msg = "Edit failed."
	}
	log.Warn().Err(err).Msg("Tool call failed")
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
