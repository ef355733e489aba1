package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/user"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

type SyncHandler interface {
	Enqueue(w http.ResponseWriter, r *http.Request)
	EnqueueBatch(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	PendingCount(w http.ResponseWriter, r *http.Request)
	Flush(w http.ResponseWriter, r *http.Request)
	Retry(w http.ResponseWriter, r *http.Request)
	Clear(w http.ResponseWriter, r *http.Request)
}

type syncHandlerImpl struct {
	syncService syncqueue.Service
}

func NewSyncHandler(syncService syncqueue.Service) SyncHandler {
	return &syncHandlerImpl{syncService: syncService}
}

// Enqueue stores one offline operation as pending.
func (h *syncHandlerImpl) Enqueue(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req syncqueue.EnqueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.syncService.Enqueue(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Operation queued", result)
}

// EnqueueBatch uploads a device queue and optionally flushes it.
func (h *syncHandlerImpl) EnqueueBatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req syncqueue.BatchEnqueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID
	for i := range req.Items {
		req.Items[i].EmployeeID = identity.EmployeeID
		req.Items[i].CompanyID = identity.CompanyID
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.syncService.EnqueueBatch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Operations queued", result)
}

// List returns the caller's queue. Managers may pass employee_id or omit it
// to see the whole company.
func (h *syncHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	filter := syncqueue.Filter{
		CompanyID: identity.CompanyID,
		Page:      getIntQueryParam(r, "page", 1),
		PageSize:  getIntQueryParam(r, "page_size", 20),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := syncqueue.Status(status)
		switch s {
		case syncqueue.StatusPending, syncqueue.StatusFailed, syncqueue.StatusSynced:
			filter.Status = &s
		default:
			response.BadRequest(w, "status must be pending, failed or synced", nil)
			return
		}
	}

	if user.HasPermission(identity.Role, user.PermissionSyncManageAll) {
		filter.EmployeeID = getStringQueryParam(r, "employee_id")
	} else {
		filter.EmployeeID = &identity.EmployeeID
	}

	result, err := h.syncService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, meta(result.Page, result.PageSize, result.TotalCount))
}

func (h *syncHandlerImpl) PendingCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	count, err := h.syncService.PendingCount(r.Context(), identity.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]int{"pending_count": count})
}

// Flush replays the caller's queue. A concurrent flush yields 409.
func (h *syncHandlerImpl) Flush(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	employeeID := identity.EmployeeID
	if target := chi.URLParam(r, "employeeID"); target != "" {
		if !user.HasPermission(identity.Role, user.PermissionSyncManageAll) {
			response.HandleError(w, syncqueue.ErrUnauthorized)
			return
		}
		employeeID = target
	}

	result, err := h.syncService.Flush(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *syncHandlerImpl) Retry(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	result, err := h.syncService.Retry(r.Context(), identity.EmployeeID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *syncHandlerImpl) Clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	if err := h.syncService.Clear(r.Context(), identity.EmployeeID, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Sync item removed", nil)
}
