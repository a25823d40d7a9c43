package editorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/session"
)

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// TextPayload is the body of the cell, title and caption setters.
type TextPayload struct {
	Text *string `json:"text"`
}

// CreatePayload is the body of the create endpoint.
type CreatePayload struct {
	Rows    int        `json:"rows,omitempty"`
	Cols    int        `json:"cols,omitempty"`
	Cells   [][]string `json:"cells,omitempty"`
	Title   *string    `json:"title,omitempty"`
	Caption *string    `json:"caption,omitempty"`
}

func (p CreatePayload) toInput() session.CreateInput {
	return session.CreateInput{
		Rows:    p.Rows,
		Cols:    p.Cols,
		Cells:   p.Cells,
		Title:   p.Title,
		Caption: p.Caption,
	}
}

// readBody reads at most maxBytes from the request body.
func readBody(req Request, maxBytes int64) ([]byte, error) {
	body := req.Body()
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, export.NewError(export.KindValidation, "read request body failed", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, export.NewError(export.KindValidation, fmt.Sprintf("request body exceeds %d bytes", maxBytes), nil).WithCode("payload_too_large")
	}
	return raw, nil
}

// decodeCreate accepts an empty body as "use defaults".
func decodeCreate(req Request, maxBytes int64) (CreatePayload, error) {
	var payload CreatePayload
	raw, err := readBody(req, maxBytes)
	if err != nil {
		return payload, err
	}
	if raw == nil {
		return payload, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return CreatePayload{}, nil
		}
		return CreatePayload{}, export.NewError(export.KindValidation, "invalid request payload", err)
	}
	if payload.Rows < 0 || payload.Cols < 0 {
		return CreatePayload{}, export.NewError(export.KindValidation, "rows and cols must be positive", nil).WithCode("invalid_dimensions")
	}
	return payload, nil
}

func decodeText(req Request, maxBytes int64) (string, error) {
	raw, err := readBody(req, maxBytes)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", export.NewError(export.KindValidation, "request body is required", nil)
	}

	var payload TextPayload
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return "", export.NewError(export.KindValidation, "invalid request payload", err)
	}
	if payload.Text == nil {
		return "", export.NewError(export.KindValidation, "text is required", nil).WithCode("text_required")
	}
	return *payload.Text, nil
}

func parsePosition(rawRow, rawCol string) (int, int, error) {
	row, err := strconv.Atoi(rawRow)
	if err != nil {
		return 0, 0, export.NewError(export.KindValidation, "invalid row index", err).WithCode("cell_out_of_range")
	}
	col, err := strconv.Atoi(rawCol)
	if err != nil {
		return 0, 0, export.NewError(export.KindValidation, "invalid column index", err).WithCode("cell_out_of_range")
	}
	return row, col, nil
}
