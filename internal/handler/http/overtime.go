package http

import (
	"net/http"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

type OvertimeHandler interface {
	Respond(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
}

type overtimeHandlerImpl struct {
	overtimeService overtime.Service
}

func NewOvertimeHandler(overtimeService overtime.Service) OvertimeHandler {
	return &overtimeHandlerImpl{overtimeService: overtimeService}
}

// Respond records the employee's answer to the overtime prompt.
func (h *overtimeHandlerImpl) Respond(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req overtime.RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.overtimeService.Respond(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Overtime declined"
	if *req.Approve {
		message = "Overtime approved"
	}
	response.SuccessWithMessage(w, message, result)
}

func (h *overtimeHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	result, err := h.overtimeService.GetStatus(r.Context(), identity.EmployeeID, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
