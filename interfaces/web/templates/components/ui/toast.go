package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// ToastNotificationView represents the view model for a toast notification.
type ToastNotificationView struct {
	Title     string
	Message   string
	Type      string
	RecordID  string
	Timestamp time.Time
}

func toastClasses(toastType string) string {
	switch toastType {
	case "success":
		return "toast toast-success border-green-200 bg-green-50 text-green-800"
	case "error":
		return "toast toast-error border-red-200 bg-red-50 text-red-800"
	case "warning":
		return "toast toast-warning border-amber-200 bg-amber-50 text-amber-800"
	default:
		return "toast toast-info border-blue-200 bg-blue-50 text-blue-800"
	}
}

// ToastNotification renders a plain toast with a message.
func ToastNotification(message, toastType string) templ.Component {
	return RichToastNotification(ToastNotificationView{Message: message, Type: toastType})
}

// RichToastNotification renders a toast with an optional title, record and time.
func RichToastNotification(view ToastNotificationView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="%s" role="status" aria-live="polite">`,
			templ.EscapeString(toastClasses(view.Type))); err != nil {
			return err
		}
		if view.Title != "" {
			if _, err := fmt.Fprintf(w, `<p class="toast-title font-semibold">%s</p>`, templ.EscapeString(view.Title)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<p class="toast-message">%s</p>`, templ.EscapeString(view.Message)); err != nil {
			return err
		}
		if view.RecordID != "" {
			if _, err := fmt.Fprintf(w, `<p class="toast-record text-xs" data-record-id="%s">Record %s</p>`,
				templ.EscapeString(view.RecordID), templ.EscapeString(view.RecordID)); err != nil {
				return err
			}
		}
		if !view.Timestamp.IsZero() {
			if _, err := fmt.Fprintf(w, `<time class="toast-time text-xs" datetime="%s">%s</time>`,
				view.Timestamp.Format(time.RFC3339), view.Timestamp.Format("15:04:05")); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
