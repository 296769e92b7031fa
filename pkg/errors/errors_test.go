package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	e := New(ErrUrnInvalid, CategoryValidation, "counts do not match colors")
	assert.Equal(t, "URN_INVALID: counts do not match colors", e.Error())

	e.WithCause(fmt.Errorf("boom"))
	assert.Equal(t, "URN_INVALID: counts do not match colors: boom", e.Error())
}

func TestIsMatchesByCode(t *testing.T) {
	a := ValidationErrorf(ErrPartitionInfeasible, "size=%d k=%d", 1, 5)
	b := New(ErrPartitionInfeasible, CategoryValidation, "other message")
	c := New(ErrUrnInvalid, CategoryValidation, "different")

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestAsFindsWrappedError(t *testing.T) {
	inner := SessionErrorf(ErrTrialLocked, "trial %s is locked", "trial1")
	wrapped := fmt.Errorf("choose: %w", inner)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrTrialLocked, got.Code)
	assert.True(t, IsCode(wrapped, ErrTrialLocked))
	assert.True(t, IsCategory(wrapped, CategorySession))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrTrialLocked))
	assert.False(t, IsCode(nil, ErrTrialLocked))
}

func TestContextString(t *testing.T) {
	e := New(ErrLedgerWriteFailed, CategoryIO, "append failed").
		WithContext("path", "within_data.csv").
		WithContext("sequence", "4")
	assert.Equal(t, `path="within_data.csv", sequence="4"`, e.ContextString())
}

func TestSprint(t *testing.T) {
	e := WrapIO(fmt.Errorf("disk full"), ErrLedgerWriteFailed, "could not append participant row").
		WithContext("path", "within_data.csv").
		WithSuggestion("Check free space in the data directory")

	out := Sprint(e)
	assert.True(t, strings.HasPrefix(out, "ERROR [LEDGER_WRITE_FAILED]: could not append participant row"))
	assert.Contains(t, out, "path: within_data.csv")
	assert.Contains(t, out, "cause: disk full")
	assert.Contains(t, out, "→ Check free space in the data directory")
	assert.NotContains(t, out, "\033[")
}

func TestSprintPlainError(t *testing.T) {
	assert.Equal(t, "Error: plain", Sprint(fmt.Errorf("plain")))
	assert.Equal(t, "", Sprint(nil))
}
