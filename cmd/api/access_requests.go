package main

import (
	"errors"
	"net/http"

	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CreateAccessRequestPayload struct {
	ResourceType string     `json:"resource_type" validate:"required,resourcetype"`
	ResourceID   uuid.UUID  `json:"resource_id"`
	OwnerID      *uuid.UUID `json:"owner_id"`
	Message      string     `json:"message" validate:"max=1000"`
}

type DecisionPayload struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// AccessStatus answers whether the caller has asked for, or been given,
// access to a resource.
type AccessStatus struct {
	HasRequested    bool `json:"has_requested"`
	HasSharedAccess bool `json:"has_shared_access"`
}

// createAccessRequestHandler godoc
//
//	@Summary		Request access
//	@Description	Asks the owner of a category or product for access. owner_id is optional; when given it must match the real owner. An empty message is replaced with a default one.
//	@Tags			access
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateAccessRequestPayload	true	"Request"
//	@Success		201		{object}	accesscontrol.AccessRequest
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/access-requests [post]
func (app *application) createAccessRequestHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateAccessRequestPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if payload.ResourceID == uuid.Nil {
		app.badRequestResponse(w, r, errors.New("resource_id is required"))
		return
	}

	owner := uuid.Nil
	if payload.OwnerID != nil {
		owner = *payload.OwnerID
	}

	req, err := app.service.RequestAccess(
		r.Context(),
		callerID(r),
		accesscontrol.ResourceType(payload.ResourceType),
		payload.ResourceID,
		owner,
		payload.Message,
	)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, req); err != nil {
		app.internalServerError(w, r, err)
	}
}

// incomingAccessRequestsHandler godoc
//
//	@Summary		Requests addressed to you
//	@Description	Newest first, with requester and resource names. Deleted resources show as "Unknown".
//	@Tags			access
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Param			limit	query		int	false	"Page size"		default(15)
//	@Success		200		{object}	ListResponse[service.IncomingRequest]
//	@Failure		401		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/access-requests/incoming [get]
func (app *application) incomingAccessRequestsHandler(w http.ResponseWriter, r *http.Request) {
	reqs, err := app.service.ListIncomingRequests(r.Context(), callerID(r))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []service.IncomingRequest{}
	}

	if err := app.jsonResponse(w, http.StatusOK, paginate(r, reqs)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// outgoingAccessRequestsHandler godoc
//
//	@Summary		Requests you have made
//	@Tags			access
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Param			limit	query		int	false	"Page size"		default(15)
//	@Success		200		{object}	ListResponse[service.OutgoingRequest]
//	@Failure		401		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/access-requests/outgoing [get]
func (app *application) outgoingAccessRequestsHandler(w http.ResponseWriter, r *http.Request) {
	reqs, err := app.service.ListOutgoingRequests(r.Context(), callerID(r))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []service.OutgoingRequest{}
	}

	if err := app.jsonResponse(w, http.StatusOK, paginate(r, reqs)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// decideAccessRequestHandler godoc
//
//	@Summary		Approve or reject a request
//	@Description	Only the resource owner can decide, and only while the request is pending. Approval writes a shared access grant.
//	@Tags			access
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Access request ID"
//	@Param			payload	body		DecisionPayload	true	"Decision"
//	@Success		200		{object}	accesscontrol.AccessRequest
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"Already decided"
//	@Security		ApiKeyAuth
//	@Router			/access-requests/{id}/decision [post]
func (app *application) decideAccessRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload DecisionPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	req, err := app.service.DecideRequest(r.Context(), callerID(r), id, accesscontrol.Status(payload.Decision))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, req); err != nil {
		app.internalServerError(w, r, err)
	}
}

// accessStatusHandler godoc
//
//	@Summary		Access status for a resource
//	@Tags			access
//	@Produce		json
//	@Param			type	path		string	true	"category or product"
//	@Param			id		path		string	true	"Resource ID"
//	@Success		200		{object}	AccessStatus
//	@Failure		400		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/access/{type}/{id} [get]
func (app *application) accessStatusHandler(w http.ResponseWriter, r *http.Request) {
	rt := accesscontrol.ResourceType(chi.URLParam(r, "type"))
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	caller := callerID(r)
	requested, err := app.service.HasRequestedAccess(r.Context(), caller, rt, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	shared, err := app.service.HasSharedAccess(r.Context(), caller, rt, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	status := AccessStatus{HasRequested: requested, HasSharedAccess: shared}
	if err := app.jsonResponse(w, http.StatusOK, status); err != nil {
		app.internalServerError(w, r, err)
	}
}

// granteesHandler godoc
//
//	@Summary		Users a resource is shared with
//	@Description	Owner only.
//	@Tags			access
//	@Produce		json
//	@Param			type	path		string	true	"category or product"
//	@Param			id		path		string	true	"Resource ID"
//	@Success		200		{array}		service.Grantee
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/access/{type}/{id}/grantees [get]
func (app *application) granteesHandler(w http.ResponseWriter, r *http.Request) {
	rt := accesscontrol.ResourceType(chi.URLParam(r, "type"))
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	grantees, err := app.service.ListGrantees(r.Context(), callerID(r), rt, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, grantees); err != nil {
		app.internalServerError(w, r, err)
	}
}
