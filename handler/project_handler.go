package handler

import (
	"go-task-api/common"
	"go-task-api/model"
	"go-task-api/service"
	"net/http"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func projectIDFromPath(r *http.Request) (string, *common.AppError) {
	id := r.PathValue("projectId")
	if !common.IsValidID(id) {
		return "", common.NewAppError(http.StatusBadRequest, "Invalid project ID", nil)
	}
	return id, nil
}

// CreateProject godoc
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project  body      model.CreateProjectRequest  true  "Project"
// @Success      201      {object}  common.APIResponse{data=model.Project}
// @Failure      400      {object}  common.AppError
// @Router       /api/projects [post]
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	var req model.CreateProjectRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	project, err := h.projects.CreateProject(r.Context(), user.ID, req)
	if err != nil {
		return serviceError(err, "Could not create project")
	}
	common.Respond(w, http.StatusCreated, "Project created successfully", project)
	return nil
}

// ListProjects godoc
// @Summary      List the caller's projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse{data=[]model.Project}
// @Router       /api/projects [get]
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}

	projects, err := h.projects.ListProjects(r.Context(), user.ID)
	if err != nil {
		return serviceError(err, "Could not retrieve projects")
	}
	common.Respond(w, http.StatusOK, "Projects fetched successfully", projects)
	return nil
}

// GetProject godoc
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      string  true  "Project ID"
// @Success      200        {object}  common.APIResponse{data=model.Project}
// @Failure      404        {object}  common.AppError
// @Router       /api/projects/{projectId} [get]
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := projectIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	project, err := h.projects.GetProject(r.Context(), id, user.ID)
	if err != nil {
		return serviceError(err, "Could not retrieve project")
	}
	common.Respond(w, http.StatusOK, "Project fetched successfully", project)
	return nil
}

// UpdateProject godoc
// @Summary      Update a project
// @Description  Only the fields present in the body are changed.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      string                      true  "Project ID"
// @Param        project    body      model.UpdateProjectRequest  true  "Fields to change"
// @Success      200        {object}  common.APIResponse{data=model.Project}
// @Failure      400        {object}  common.AppError
// @Failure      404        {object}  common.AppError
// @Router       /api/projects/{projectId} [put]
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := projectIDFromPath(r)
	if appErr != nil {
		return appErr
	}
	var req model.UpdateProjectRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	project, err := h.projects.UpdateProject(r.Context(), id, user.ID, req)
	if err != nil {
		return serviceError(err, "Could not update project")
	}
	common.Respond(w, http.StatusOK, "Project updated successfully", project)
	return nil
}

// DeleteProject godoc
// @Summary      Delete a project
// @Description  Tasks in the project are kept and detached from it.
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      string  true  "Project ID"
// @Success      200        {object}  common.APIResponse
// @Failure      404        {object}  common.AppError
// @Router       /api/projects/{projectId} [delete]
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := projectIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	if err := h.projects.DeleteProject(r.Context(), id, user.ID); err != nil {
		return serviceError(err, "Could not delete project")
	}
	common.Respond(w, http.StatusOK, "Project deleted successfully", struct{}{})
	return nil
}
