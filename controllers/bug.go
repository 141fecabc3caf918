package controllers

import (
	"net/http"
	"strconv"

	"bugbase/auth"
	"bugbase/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

type BugController struct {
	bugService services.BugService
}

// NewBugController creates a new BugController instance
func NewBugController(bugService services.BugService) *BugController {
	return &BugController{bugService: bugService}
}

type UpdateStatusInput struct {
	Status string `json:"status"`
}

type AssignBugInput struct {
	DeveloperID uint `json:"developerId"`
}

// RegisterRoutes sets up the bug-related routes on a go-restful WebService.
// Every route sits behind the auth filter; role checks happen in the
// service layer, which owns the lifecycle policy.
func (ctl *BugController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/bugs").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.POST("").Filter(auth.AuthFilter()).To(ctl.createHandler).
		Doc("Report a new bug (user role only)").
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Reads(services.CreateBugInput{}).
		Returns(http.StatusCreated, "Bug reported", services.BugView{}).
		Returns(http.StatusBadRequest, "Invalid bug input", nil).
		Returns(http.StatusForbidden, "Only users can create bugs", nil))

	ws.Route(ws.GET("").Filter(auth.AuthFilter()).To(ctl.listHandler).
		Doc("List bugs visible to the caller's role").
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Writes([]services.BugView{}).
		Returns(http.StatusOK, "Bugs listed", []services.BugView{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil))

	// Static paths must be registered alongside the {bug-id} routes; the
	// router prefers exact segments over path parameters.
	ws.Route(ws.GET("/qa/list").Filter(auth.AuthFilter()).To(ctl.qaQueueHandler).
		Doc("QA review queue (qa or admin)").
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Writes([]services.BugView{}).
		Returns(http.StatusOK, "QA queue", []services.BugView{}).
		Returns(http.StatusForbidden, "Forbidden", nil))

	ws.Route(ws.GET("/assigned").Filter(auth.AuthFilter()).To(ctl.assignedHandler).
		Doc("Bugs assigned to the calling developer").
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Writes([]services.BugView{}).
		Returns(http.StatusOK, "Assigned bugs", []services.BugView{}).
		Returns(http.StatusForbidden, "Forbidden", nil))

	ws.Route(ws.GET("/{bug-id}").Filter(auth.AuthFilter()).To(ctl.getByIDHandler).
		Doc("Get a single bug, visibility-checked").
		Param(ws.PathParameter("bug-id", "Identifier of the bug").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Writes(services.BugView{}).
		Returns(http.StatusOK, "Bug found", services.BugView{}).
		Returns(http.StatusBadRequest, "Invalid bug ID", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "Bug not found", nil))

	ws.Route(ws.PUT("/{bug-id}/status").Filter(auth.AuthFilter()).To(ctl.updateStatusHandler).
		Doc("Transition a bug's status").
		Param(ws.PathParameter("bug-id", "Identifier of the bug").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Reads(UpdateStatusInput{}).
		Returns(http.StatusOK, "Status updated", services.BugView{}).
		Returns(http.StatusBadRequest, "Invalid status", nil).
		Returns(http.StatusForbidden, "Forbidden or not approved", nil).
		Returns(http.StatusNotFound, "Bug not found", nil))

	ws.Route(ws.PUT("/{bug-id}/approve").Filter(auth.AuthFilter()).To(ctl.approveHandler).
		Doc("Approve a bug (admin only, idempotent)").
		Param(ws.PathParameter("bug-id", "Identifier of the bug").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Returns(http.StatusOK, "Bug approved", services.BugView{}).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "Bug not found", nil))

	ws.Route(ws.PUT("/{bug-id}/assign").Filter(auth.AuthFilter()).To(ctl.assignHandler).
		Doc("Assign a bug to a developer (admin only; approves and sets inprogress)").
		Param(ws.PathParameter("bug-id", "Identifier of the bug").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Reads(AssignBugInput{}).
		Returns(http.StatusOK, "Bug assigned", services.BugView{}).
		Returns(http.StatusBadRequest, "Missing or invalid developer ID", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "Bug not found", nil))

	ws.Route(ws.DELETE("/{bug-id}").Filter(auth.AuthFilter()).To(ctl.deleteHandler).
		Doc("Delete a bug (admin only)").
		Param(ws.PathParameter("bug-id", "Identifier of the bug").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"bugs"}).
		Returns(http.StatusOK, "Bug deleted", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "Bug not found", nil))
}

func (ctl *BugController) createHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	input := new(services.CreateBugInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bug, err := ctl.bugService.Create(caller, input)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusCreated, bug, restful.MIME_JSON)
}

func (ctl *BugController) listHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugs, err := ctl.bugService.List(caller)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bugs, restful.MIME_JSON)
}

func (ctl *BugController) getByIDHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugID, ok := parseBugID(request, response)
	if !ok {
		return
	}

	bug, err := ctl.bugService.GetByID(caller, bugID)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bug, restful.MIME_JSON)
}

func (ctl *BugController) assignedHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugs, err := ctl.bugService.ListAssigned(caller)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bugs, restful.MIME_JSON)
}

func (ctl *BugController) qaQueueHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugs, err := ctl.bugService.ListQAQueue(caller)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bugs, restful.MIME_JSON)
}

func (ctl *BugController) updateStatusHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugID, ok := parseBugID(request, response)
	if !ok {
		return
	}

	input := new(UpdateStatusInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bug, err := ctl.bugService.UpdateStatus(caller, bugID, input.Status)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bug, restful.MIME_JSON)
}

func (ctl *BugController) approveHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugID, ok := parseBugID(request, response)
	if !ok {
		return
	}

	bug, err := ctl.bugService.Approve(caller, bugID)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bug, restful.MIME_JSON)
}

func (ctl *BugController) assignHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugID, ok := parseBugID(request, response)
	if !ok {
		return
	}

	input := new(AssignBugInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bug, err := ctl.bugService.Assign(caller, bugID, input.DeveloperID)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, bug, restful.MIME_JSON)
}

func (ctl *BugController) deleteHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	bugID, ok := parseBugID(request, response)
	if !ok {
		return
	}

	if err := ctl.bugService.Delete(caller, bugID); err != nil {
		writeError(response, err)
		return
	}

	writeMessage(response, http.StatusOK, "Bug deleted")
}

// parseBugID reads the bug-id path parameter, answering 400 on a malformed
// identifier.
func parseBugID(request *restful.Request, response *restful.Response) (uint, bool) {
	id, err := strconv.ParseUint(request.PathParameter("bug-id"), 10, 32)
	if err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid bug ID")
		return 0, false
	}
	return uint(id), true
}
