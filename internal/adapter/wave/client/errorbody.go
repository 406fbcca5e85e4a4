package client

import (
	"encoding/json"
	"errors"
)

// ErrorDetail is one entry of the gateway's error details list.
type ErrorDetail struct {
	Loc []string `json:"loc,omitempty"`
	Msg string   `json:"msg"`
}

// ErrorBody is the gateway error shape: {code?, message, details?[{loc?, msg}]}.
type ErrorBody struct {
	Code    *string       `json:"code,omitempty"`
	Message *string       `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

var errMissingMessage = errors.New("error body has no message")

// DecodeErrorBody parses a gateway error body. message is required.
func DecodeErrorBody(body []byte) (*ErrorBody, error) {
	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return nil, err
	}
	if eb.Message == nil {
		return nil, errMissingMessage
	}
	return &eb, nil
}

// FirstDetail returns the first detail message, if any.
func (eb *ErrorBody) FirstDetail() (string, bool) {
	if len(eb.Details) == 0 {
		return "", false
	}
	return eb.Details[0].Msg, true
}
