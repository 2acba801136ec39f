package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/jwt"
)

// NotificationHandler defines the notification handler interface
type NotificationHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	MarkRead(w http.ResponseWriter, r *http.Request)
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type notificationHandlerImpl struct {
	notifSvc notification.Service
	jwtSvc   jwt.Service
}

func NewNotificationHandler(notifSvc notification.Service, jwtSvc jwt.Service) NotificationHandler {
	return &notificationHandlerImpl{notifSvc: notifSvc, jwtSvc: jwtSvc}
}

// List returns paginated notifications for the authenticated employee
func (h *notificationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	unreadOnly := queryBool(r, "unread_only", false)

	items, total, err := h.notifSvc.List(r.Context(), employeeIDFromContext(r), page, limit, unreadOnly)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, items, &response.Meta{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

func (h *notificationHandlerImpl) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.notifSvc.MarkRead(r.Context(), employeeIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Notification marked read", nil)
}

// GetSSEToken issues a short-lived token for the event stream, which the
// browser cannot authenticate with a header.
func (h *notificationHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	token, expiresIn, err := h.jwtSvc.GenerateSSEToken(employeeIDFromContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"token":      token,
		"expires_in": expiresIn,
	})
}

// Stream serves the live notification feed over SSE, authenticated by the
// token query parameter.
func (h *notificationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	employeeID, err := h.jwtSvc.ValidateSSEToken(r.URL.Query().Get("token"))
	if err != nil {
		response.Unauthorized(w, "Invalid stream token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cleanup := h.notifSvc.Subscribe(employeeID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
			flusher.Flush()
		}
	}
}
