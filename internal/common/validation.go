package common

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxNotificationLength = 500
	MaxMessageLength      = 5000
)

// ValidateNotification checks kind, text and that refs only use fields allowed for kind.
// It returns the trimmed message.
func ValidateNotification(kind NotificationKind, message string, refs SubjectRefs) (string, error) {
	if !kind.IsValid() {
		return "", Validationf("unknown notification kind %q", kind)
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", Validationf("notification message is required")
	}
	if utf8.RuneCountInString(message) > MaxNotificationLength {
		return "", Validationf("notification message cannot exceed %d characters", MaxNotificationLength)
	}

	allowed := make(map[RefField]bool)
	for _, field := range kind.AllowedRefs() {
		allowed[field] = true
	}
	for field := range refs.Set() {
		if !allowed[field] {
			return "", Validationf("%s reference is not allowed for kind %s", field, kind)
		}
	}

	return message, nil
}

// ValidateContent trims and bounds a chat message body.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", Validationf("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", Validationf("message cannot exceed %d characters", MaxMessageLength)
	}
	return content, nil
}

func ValidateUserID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return Validationf("%s is required", field)
	}
	return nil
}
