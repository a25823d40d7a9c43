package editorapi

import (
	"io"

	exportformgen "github.com/goliatone/go-gridexport/adapters/formgen"
	"github.com/goliatone/go-gridexport/export/notify"
)

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	DelHeader(name string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
	Writer() (io.Writer, bool)
}

// FormResponse wraps the editor widgets with pending notifications.
type FormResponse struct {
	Form          exportformgen.UI      `json:"form"`
	Notifications []notify.Notification `json:"notifications"`
}

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error         ErrorBody             `json:"error"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
