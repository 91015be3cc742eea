package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      string
	}{
		{ErrorTypeMissingContent, "MISSING_CONTENT"},
		{ErrorTypeMatchAmbiguity, "MATCH_AMBIGUITY"},
		{ErrorTypeMalformedFragment, "MALFORMED_FRAGMENT"},
		{ErrorTypeUnreadableDocument, "UNREADABLE_DOCUMENT"},
		{ErrorTypeUnsupportedFormat, "UNSUPPORTED_FORMAT"},
		{ErrorTypeWriteFailure, "WRITE_FAILURE"},
		{ErrorTypeFileTooLarge, "FILE_TOO_LARGE"},
		{ErrorTypePathViolation, "PATH_VIOLATION"},
		{ErrorTypeUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.errorType.String())
		})
	}
}

func TestErrorType_Recoverable(t *testing.T) {
	assert.True(t, ErrorTypeMalformedFragment.IsRecoverable())
	assert.True(t, ErrorTypeMissingContent.IsRecoverable())
	assert.False(t, ErrorTypeUnreadableDocument.IsRecoverable())
	assert.False(t, ErrorTypeWriteFailure.IsRecoverable())
	assert.Equal(t, SeverityFatal, ErrorTypeWriteFailure.GetSeverity())
	assert.Equal(t, SeverityInfo, ErrorTypeMatchAmbiguity.GetSeverity())
}

func TestFormError_ErrorMessage(t *testing.T) {
	err := Wrap(ErrorTypeWriteFailure, "cannot write document", fs.ErrPermission).
		WithPath("/out/form.docx")

	assert.Equal(t, "[WRITE_FAILURE] cannot write document (/out/form.docx): permission denied", err.Error())
	assert.False(t, err.Recoverable)
	assert.False(t, err.Timestamp.IsZero())
}

func TestFormError_IsAndAs(t *testing.T) {
	base := New(ErrorTypeUnreadableDocument, "not a zip archive").WithPath("a.docx")
	wrapped := fmt.Errorf("open: %w", base)

	assert.True(t, errors.Is(wrapped, &FormError{Type: ErrorTypeUnreadableDocument}))
	assert.True(t, errors.Is(wrapped, &FormError{}))
	assert.False(t, errors.Is(wrapped, &FormError{Type: ErrorTypeWriteFailure}))

	var fe *FormError
	require.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, "a.docx", fe.Path)

	assert.Equal(t, ErrorTypeUnreadableDocument, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeUnreadableDocument))
	assert.False(t, IsType(nil, ErrorTypeUnreadableDocument))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestFormError_UnwrapCause(t *testing.T) {
	err := Wrap(ErrorTypeWriteFailure, "mkdir", fs.ErrPermission)
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.Equal(t, 7, New(ErrorTypeMalformedFragment, "bad").WithFragment(7).FragmentIndex)
}
