package communication

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIdentity     = errors.New("project id and user id are required")
	ErrClosed              = errors.New("communication manager closed")
	ErrUnknownGroup        = errors.New("chat group does not belong to project")
	ErrDuplicateSubmission = errors.New("duplicate client message id")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnknownCollection   = errors.New("unknown collection")
)

// Action names carried by ActionError.
const (
	ActionSendMessage          = "send_message"
	ActionCreateChatGroup      = "create_chat_group"
	ActionCreateProgress       = "create_progress_report"
	ActionCreateSafetyAlert    = "create_safety_alert"
	ActionCreateNotification   = "create_notification"
	ActionMarkNotificationRead = "mark_notification_read"
	ActionMarkAllRead          = "mark_all_notifications_read"
)

// ActionError is returned by every write action that failed. Local state is
// left untouched unless the primary write succeeded.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed collection fetch.
type FetchError struct {
	Collection Collection
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
