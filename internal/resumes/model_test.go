package resumes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusProcessing, StatusProcessing, true},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusProcessing, true},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusPending, false},
		{Status("archived"), StatusProcessing, false},
		{StatusPending, Status("archived"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAllowedFrom(t *testing.T) {
	assert.Equal(t, []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}, allowedFrom(StatusProcessing))
	assert.Equal(t, []Status{StatusProcessing, StatusCompleted}, allowedFrom(StatusCompleted))
	assert.Equal(t, []Status{StatusPending}, allowedFrom(StatusPending))
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPrivate, v)

	v, err = ParseVisibility("public")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, v)

	_, err = ParseVisibility("friends")
	require.Error(t, err)
}
