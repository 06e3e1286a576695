package presenters

import (
	"feellog/domain/events"
)

// ToastFormatter defines the contract for toast presentation logic.
type ToastFormatter interface {
	FormatToastNotification(message, toastType string) (string, error)
	FormatRecordCompletedToast(event events.RecordCompletedEvent) (string, error)
}

// Ensure ToastPresenter implements the interface.
var _ ToastFormatter = (*ToastPresenter)(nil)
