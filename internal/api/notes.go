package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// ListNotes fetches one page of the caller's notes. Only provided params are
// sent.
func ListNotes(ctx context.Context, r Requester, params types.ListNotesParams) (*types.NotePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lr types.ListNotesResponse
	if err := r.Do(ctx, http.MethodGet, pathNotes, params.Values(), nil, &lr); err != nil {
		return nil, err
	}
	return lr.Page(), nil
}

// GetNote retrieves a single note.
func GetNote(ctx context.Context, r Requester, id int64) (*types.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateNoteID(id); err != nil {
		return nil, err
	}
	var n types.Note
	if err := r.Do(ctx, http.MethodGet, fmt.Sprintf(pathNoteByID, id), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote submits a video link; the backend generates the note content
// before responding, so this call can take minutes.
func CreateNote(ctx context.Context, r Requester, req types.CreateNoteRequest) (*types.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateSourceURL(req.SourceURL); err != nil {
		return nil, err
	}
	var n types.Note
	if err := r.Do(ctx, http.MethodPost, pathNotes, nil, req, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote changes the provided fields of a note.
func UpdateNote(ctx context.Context, r Requester, id int64, req types.UpdateNoteRequest) (*types.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateNoteID(id); err != nil {
		return nil, err
	}
	var n types.Note
	if err := r.Do(ctx, http.MethodPut, fmt.Sprintf(pathNoteByID, id), nil, req, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes a note permanently.
func DeleteNote(ctx context.Context, r Requester, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateNoteID(id); err != nil {
		return err
	}
	var mr types.MessageResponse
	return r.Do(ctx, http.MethodDelete, fmt.Sprintf(pathNoteByID, id), nil, nil, &mr)
}

// Notes binds the note endpoints to a Requester.
type Notes struct{ R Requester }

func (n Notes) List(ctx context.Context, params types.ListNotesParams) (*types.NotePage, error) {
	return ListNotes(ctx, n.R, params)
}

func (n Notes) Get(ctx context.Context, id int64) (*types.Note, error) {
	return GetNote(ctx, n.R, id)
}

func (n Notes) Create(ctx context.Context, req types.CreateNoteRequest) (*types.Note, error) {
	return CreateNote(ctx, n.R, req)
}

func (n Notes) Update(ctx context.Context, id int64, req types.UpdateNoteRequest) (*types.Note, error) {
	return UpdateNote(ctx, n.R, id, req)
}

func (n Notes) Delete(ctx context.Context, id int64) error {
	return DeleteNote(ctx, n.R, id)
}
