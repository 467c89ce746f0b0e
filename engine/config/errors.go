package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// -----------------------------------------------------------------------------
// Sentinel errors
// -----------------------------------------------------------------------------

// Recoverable value-access errors. Callers classify them with errors.Is and
// may report-and-continue; neither ever mutates instance state.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

// Schema-contract errors. These indicate a build or packaging defect and are
// fatal during startup; they are not meant to be caught and retried.
var (
	ErrGroupLocked        = errors.New("group is locked")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrInvalidDefinition  = errors.New("invalid field definition")
	ErrSchemaLocked       = errors.New("config schema is locked")
	ErrSchemaNotFinalized = errors.New("config schema is not finalized")
	ErrDuplicateGroup     = errors.New("duplicate group name")
	ErrGroupNotFinalized  = errors.New("group is not finalized")
	ErrPluginContract     = errors.New("plugin contract violation")
)

// -----------------------------------------------------------------------------
// Error
// -----------------------------------------------------------------------------

// Error attaches a stable code and structured details to an underlying error
// for diagnostics-facing surfaces.
type Error struct {
	Err     error          `json:"-"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// NewError wraps err with a code and optional details. A nil err produces an
// error whose message is the code itself.
func NewError(err error, code string, details map[string]any) *Error {
	return &Error{Err: err, Code: code, Details: details}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Details[k])
		}
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
