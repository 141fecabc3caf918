package controllers

import (
	"net/http"
	"strconv"

	"bugbase/apperrors"
	"bugbase/auth"
	"bugbase/models"
	"bugbase/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

type UserController struct {
	userService services.UserService
}

// NewUserController creates a new UserController instance
func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

type UpdateRoleInput struct {
	Role string `json:"role"`
}

// RegisterRoutes sets up the user-related routes on a go-restful WebService.
func (ctl *UserController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/users").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/register").To(ctl.registerHandler).
		Doc("Register a new user").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.RegisterInput{}).
		Returns(http.StatusCreated, "User registered successfully", services.UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid registration input", nil).
		Returns(http.StatusConflict, "Username or email already exists", nil))

	ws.Route(ws.POST("/login").To(ctl.loginHandler).
		Doc("Authenticate and obtain a bearer token").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Authenticated", services.LoginResult{}).
		Returns(http.StatusUnauthorized, "Invalid email or password", nil))

	ws.Route(ws.GET("/me").Filter(auth.AuthFilter()).To(ctl.meHandler).
		Doc("Get the caller's own profile").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes(services.UserResponse{}).
		Returns(http.StatusOK, "Caller profile", services.UserResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusNotFound, "User not found", nil))

	ws.Route(ws.PUT("/role/{user-id}").Filter(auth.AuthFilter()).To(ctl.updateRoleHandler).
		Doc("Change a user's role (admin only, takes effect at next login)").
		Param(ws.PathParameter("user-id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Reads(UpdateRoleInput{}).
		Returns(http.StatusOK, "Role updated", services.UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid role or user ID", nil).
		Returns(http.StatusForbidden, "Forbidden", nil).
		Returns(http.StatusNotFound, "User not found", nil))

	ws.Route(ws.GET("/developers").Filter(auth.AuthFilter()).To(ctl.listDevelopersHandler).
		Doc("List dev-role users").
		Metadata(restfulspec.KeyOpenAPITags, []string{"users"}).
		Writes([]services.UserResponse{}).
		Returns(http.StatusOK, "Developers listed", []services.UserResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil))
}

func (ctl *UserController) registerHandler(request *restful.Request, response *restful.Response) {
	input := new(services.RegisterInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := ctl.userService.Register(input)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusCreated, user, restful.MIME_JSON)
}

func (ctl *UserController) loginHandler(request *restful.Request, response *restful.Response) {
	input := new(services.LoginInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := ctl.userService.Login(input)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, result, restful.MIME_JSON)
}

func (ctl *UserController) meHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	user, err := ctl.userService.GetMe(caller.ID)
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, user, restful.MIME_JSON)
}

func (ctl *UserController) updateRoleHandler(request *restful.Request, response *restful.Response) {
	caller, ok := callerFromRequest(request)
	if !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}
	if caller.Role != models.RoleAdmin {
		writeMessage(response, http.StatusForbidden, "only admins can change roles")
		return
	}

	targetID, err := strconv.ParseUint(request.PathParameter("user-id"), 10, 32)
	if err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	input := new(UpdateRoleInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := ctl.userService.UpdateRole(uint(targetID), models.Role(input.Role))
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, user, restful.MIME_JSON)
}

func (ctl *UserController) listDevelopersHandler(request *restful.Request, response *restful.Response) {
	if _, ok := callerFromRequest(request); !ok {
		writeMessage(response, http.StatusUnauthorized, "Unauthorized: cannot identify requesting user")
		return
	}

	devs, err := ctl.userService.ListDevelopers()
	if err != nil {
		writeError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, devs, restful.MIME_JSON)
}

// --- Utility Functions ---

// callerFromRequest extracts the identity stored by auth.AuthFilter.
func callerFromRequest(request *restful.Request) (services.Caller, bool) {
	userIDAttr := request.Attribute(auth.AttrUserID)
	roleAttr := request.Attribute(auth.AttrRole)
	if userIDAttr == nil || roleAttr == nil {
		return services.Caller{}, false
	}
	userID, ok := userIDAttr.(uint)
	if !ok {
		return services.Caller{}, false
	}
	role, ok := roleAttr.(models.Role)
	if !ok {
		return services.Caller{}, false
	}
	username, _ := request.Attribute(auth.AttrUsername).(string)
	return services.Caller{ID: userID, Role: role, Username: username}, true
}

// writeError translates a service error to its HTTP response.
func writeError(response *restful.Response, err error) {
	writeMessage(response, apperrors.StatusCode(err), apperrors.Message(err))
}

func writeMessage(response *restful.Response, status int, message string) {
	_ = response.WriteHeaderAndJson(status, map[string]string{"message": message}, restful.MIME_JSON)
}
