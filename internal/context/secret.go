package context

import (
	"encoding/json"

	"go.uber.org/zap/zapcore"
)

const redacted = "*** redacted ***"

// Secret holds a credential that must never reach logs or serialized output in plaintext.
type Secret string

// Expose returns the raw value. Only the transport should call it.
func (s Secret) Expose() string {
	return string(s)
}

// IsEmpty reports whether no value is set.
func (s Secret) IsEmpty() bool {
	return s == ""
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// MarshalLogObject keeps zap.Any / zap.Object from printing the value.
func (s Secret) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", redacted)
	return nil
}
