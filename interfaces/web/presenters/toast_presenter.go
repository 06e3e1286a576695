package presenters

import (
	"context"
	"strings"

	"feellog/domain/events"
	"feellog/interfaces/web/templates/components/ui"
)

// ToastPresenter handles toast notification view logic and formatting.
type ToastPresenter struct{}

// NewToastPresenter creates a new toast presenter.
func NewToastPresenter() *ToastPresenter {
	return &ToastPresenter{}
}

// FormatToastNotification renders a simple toast notification.
func (p *ToastPresenter) FormatToastNotification(message, toastType string) (string, error) {
	var buf strings.Builder
	if err := ui.ToastNotification(message, toastType).Render(context.Background(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatRecordCompletedToast renders the toast shown when an analysis finishes.
func (p *ToastPresenter) FormatRecordCompletedToast(event events.RecordCompletedEvent) (string, error) {
	var buf strings.Builder
	if err := ui.RichToastNotification(p.createToastViewFromEvent(event)).Render(context.Background(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *ToastPresenter) createToastViewFromEvent(event events.RecordCompletedEvent) ui.ToastNotificationView {
	return ui.ToastNotificationView{
		Title:     "Analysis Complete",
		Message:   event.Message,
		Type:      "success",
		RecordID:  event.RecordID.String(),
		Timestamp: event.Timestamp,
	}
}
