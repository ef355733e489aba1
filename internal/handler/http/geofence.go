package http

import (
	"net/http"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

type GeofenceHandler interface {
	Check(w http.ResponseWriter, r *http.Request)
	ListAlerts(w http.ResponseWriter, r *http.Request)
}

type geofenceHandlerImpl struct {
	geofenceService geofence.Service
}

func NewGeofenceHandler(geofenceService geofence.Service) GeofenceHandler {
	return &geofenceHandlerImpl{geofenceService: geofenceService}
}

// Check evaluates a position against a branch geofence without recording it.
func (h *geofenceHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req geofence.CheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.geofenceService.Check(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *geofenceHandlerImpl) ListAlerts(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	filter := geofence.AlertFilter{
		CompanyID:  identity.CompanyID,
		EmployeeID: getStringQueryParam(r, "employee_id"),
		BranchID:   getStringQueryParam(r, "branch_id"),
		Page:       getIntQueryParam(r, "page", 1),
		PageSize:   getIntQueryParam(r, "page_size", 20),
	}
	if filter.From, ok = getTimeQueryParam(r, "from"); !ok {
		response.BadRequest(w, "from must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}
	if filter.To, ok = getTimeQueryParam(r, "to"); !ok {
		response.BadRequest(w, "to must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	result, err := h.geofenceService.ListAlerts(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Alerts, meta(result.Page, result.PageSize, result.TotalCount))
}
