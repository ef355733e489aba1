package http

import (
	"net/http"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/device"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

type DeviceHandler interface {
	Check(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type deviceHandlerImpl struct {
	deviceService device.Service
}

func NewDeviceHandler(deviceService device.Service) DeviceHandler {
	return &deviceHandlerImpl{deviceService: deviceService}
}

// Check records the presented device and reports whether it changed.
func (h *deviceHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req device.CheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.deviceService.Check(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *deviceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	results, err := h.deviceService.ListDevices(r.Context(), identity.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}
