package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "multipart/form-data"
)

// Request describes one backend call. Body is held in memory so the request
// can be replayed after a token refresh.
type Request struct {
	Method      string
	Path        string // Relative to the client's base URL, e.g. "/auth/me"
	Body        []byte
	ContentType string // Only multipart values are honoured; anything else becomes JSON
	Header      http.Header
}

// IsMultipart reports whether the request carries multipart form data.
func (r Request) IsMultipart() bool {
	return strings.HasPrefix(strings.ToLower(r.ContentType), contentTypeForm)
}

// NewJSONRequest encodes payload as the JSON body. A nil payload sends no body.
func NewJSONRequest(method, path string, payload any) (Request, error) {
	req := Request{Method: method, Path: path}
	if payload == nil {
		return req, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("[apiclient NewJSONRequest] encode %s %s: %w", method, path, err)
	}
	req.Body = b
	return req, nil
}

// NewMultipartRequest builds a POST with a single file part plus optional
// text fields. The content type carries the writer's boundary.
func NewMultipartRequest(path, fieldName, filename string, file io.Reader, fields map[string]string) (Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return Request{}, fmt.Errorf("[apiclient NewMultipartRequest] field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile(fieldName, filename)
	if err != nil {
		return Request{}, fmt.Errorf("[apiclient NewMultipartRequest] create part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Request{}, fmt.Errorf("[apiclient NewMultipartRequest] copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Request{}, fmt.Errorf("[apiclient NewMultipartRequest] close: %w", err)
	}

	return Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, nil
}
