package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNotification(t *testing.T) {
	tests := []struct {
		name      string
		kind      NotificationKind
		message   string
		refs      SubjectRefs
		expectErr string
	}{
		{name: "valid job update", kind: JobUpdatedKind, message: "Job updated", refs: SubjectRefs{Job: "j1"}},
		{name: "announcement without refs", kind: SystemAnnouncementKind, message: "Maintenance tonight"},
		{name: "exactly max length", kind: SystemAnnouncementKind, message: strings.Repeat("a", MaxNotificationLength)},
		{name: "unknown kind", kind: "friend_request", message: "hi", expectErr: "unknown notification kind"},
		{name: "empty message", kind: JobPostedKind, message: "   ", expectErr: "message is required"},
		{name: "too long", kind: JobPostedKind, message: strings.Repeat("a", MaxNotificationLength+1), expectErr: "cannot exceed"},
		{name: "ref not allowed", kind: MessageReceivedKind, message: "hi", refs: SubjectRefs{Job: "j1"}, expectErr: "job reference is not allowed"},
		{name: "announcement with ref", kind: SystemAnnouncementKind, message: "hi", refs: SubjectRefs{Dispute: "d"}, expectErr: "dispute reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ValidateNotification(tt.kind, tt.message, tt.refs)
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.message), msg)
		})
	}
}

func TestValidateNotification_CountsRunesNotBytes(t *testing.T) {
	_, err := ValidateNotification(SystemAnnouncementKind, strings.Repeat("é", MaxNotificationLength), SubjectRefs{})
	assert.NoError(t, err)
}

func TestValidateContent(t *testing.T) {
	content, err := ValidateContent("  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", content)

	_, err = ValidateContent("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ValidateContent(strings.Repeat("x", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}
