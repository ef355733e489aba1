package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

type EscalationHandler interface {
	CreateRule(w http.ResponseWriter, r *http.Request)
	GetRule(w http.ResponseWriter, r *http.Request)
	ListRules(w http.ResponseWriter, r *http.Request)
	UpdateRule(w http.ResponseWriter, r *http.Request)
	DeleteRule(w http.ResponseWriter, r *http.Request)

	PreviewMultiplier(w http.ResponseWriter, r *http.Request)
	ListCharges(w http.ResponseWriter, r *http.Request)
	MyCharges(w http.ResponseWriter, r *http.Request)
}

type escalationHandlerImpl struct {
	escalationService escalation.Service
}

func NewEscalationHandler(escalationService escalation.Service) EscalationHandler {
	return &escalationHandlerImpl{escalationService: escalationService}
}

func (h *escalationHandlerImpl) CreateRule(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req escalation.CreateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.escalationService.CreateRule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Escalation rule created", result)
}

func (h *escalationHandlerImpl) GetRule(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	result, err := h.escalationService.GetRule(r.Context(), chi.URLParam(r, "id"), identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *escalationHandlerImpl) ListRules(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	results, err := h.escalationService.ListRules(r.Context(), identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

func (h *escalationHandlerImpl) UpdateRule(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req escalation.UpdateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.escalationService.UpdateRule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Escalation rule updated", result)
}

func (h *escalationHandlerImpl) DeleteRule(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	if err := h.escalationService.DeleteRule(r.Context(), chi.URLParam(r, "id"), identity.CompanyID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Escalation rule deleted", nil)
}

// PreviewMultiplier reports the multiplier the next violation would receive.
func (h *escalationHandlerImpl) PreviewMultiplier(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req escalation.CalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = identity.CompanyID
	if req.At.IsZero() {
		req.At = time.Now()
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.escalationService.CalculateMultiplier(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *escalationHandlerImpl) ListCharges(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	filter, ok := parseChargeFilter(w, r)
	if !ok {
		return
	}
	filter.CompanyID = identity.CompanyID
	filter.EmployeeID = getStringQueryParam(r, "employee_id")

	h.listCharges(w, r, filter)
}

func (h *escalationHandlerImpl) MyCharges(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	filter, ok := parseChargeFilter(w, r)
	if !ok {
		return
	}
	filter.CompanyID = identity.CompanyID
	filter.EmployeeID = &identity.EmployeeID

	h.listCharges(w, r, filter)
}

func (h *escalationHandlerImpl) listCharges(w http.ResponseWriter, r *http.Request, filter escalation.ChargeFilter) {
	result, err := h.escalationService.ListCharges(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Charges, meta(result.Page, result.PageSize, result.TotalCount))
}

func parseChargeFilter(w http.ResponseWriter, r *http.Request) (escalation.ChargeFilter, bool) {
	filter := escalation.ChargeFilter{
		Page:     getIntQueryParam(r, "page", 1),
		PageSize: getIntQueryParam(r, "page_size", 20),
	}

	if v := r.URL.Query().Get("violation_type"); v != "" {
		vt := escalation.ViolationType(v)
		if !vt.IsValid() {
			response.BadRequest(w, "violation_type must be one of late_arrival, absence, early_departure, break_violation", nil)
			return filter, false
		}
		filter.ViolationType = &vt
	}

	var ok bool
	if filter.From, ok = getTimeQueryParam(r, "from"); !ok {
		response.BadRequest(w, "from must be RFC 3339 or YYYY-MM-DD", nil)
		return filter, false
	}
	if filter.To, ok = getTimeQueryParam(r, "to"); !ok {
		response.BadRequest(w, "to must be RFC 3339 or YYYY-MM-DD", nil)
		return filter, false
	}

	return filter, true
}
