package handler

import (
	"go-task-api/common"
	"go-task-api/model"
	"go-task-api/service"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func taskIDFromPath(r *http.Request) (string, *common.AppError) {
	id := r.PathValue("taskId")
	if !common.IsValidID(id) {
		return "", common.NewAppError(http.StatusBadRequest, "Invalid task ID", nil)
	}
	return id, nil
}

// queryInt returns 0 for absent or malformed values; the service applies defaults.
func queryInt(q url.Values, key string) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return 0
	}
	return n
}

func queryStatus(q url.Values) (model.TaskStatus, *common.AppError) {
	status := model.TaskStatus(strings.TrimSpace(q.Get("status")))
	if status != "" && !status.Valid() {
		return "", common.NewAppError(http.StatusBadRequest, service.ErrInvalidStatus.Error(), nil)
	}
	return status, nil
}

// parseTaskFilter reads the list filters from the query string.
func parseTaskFilter(q url.Values, userID string) (model.TaskFilter, *common.AppError) {
	status, appErr := queryStatus(q)
	if appErr != nil {
		return model.TaskFilter{}, appErr
	}
	projectID := strings.TrimSpace(q.Get("projectId"))
	if projectID != "" && !common.IsValidID(projectID) {
		return model.TaskFilter{}, common.NewAppError(http.StatusBadRequest, "Invalid project ID", nil)
	}
	return service.NormalizeTaskFilter(model.TaskFilter{
		UserID:    userID,
		Status:    status,
		Priority:  model.Priority(strings.TrimSpace(q.Get("priority"))),
		Category:  strings.TrimSpace(q.Get("category")),
		ProjectID: projectID,
		Search:    strings.TrimSpace(q.Get("search")),
		Page:      queryInt(q, "page"),
		Limit:     queryInt(q, "limit"),
		SortBy:    q.Get("sortBy"),
		SortDesc:  strings.EqualFold(q.Get("sortOrder"), "desc"),
	}), nil
}

// CreateTask godoc
// @Summary      Create a task
// @Description  The assignee defaults to the caller. A project must belong to the caller.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      model.CreateTaskRequest  true  "Task"
// @Success      201   {object}  common.APIResponse{data=model.Task}
// @Failure      400   {object}  common.AppError
// @Failure      404   {object}  common.AppError
// @Router       /api/task [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	var req model.CreateTaskRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	task, err := h.tasks.CreateTask(r.Context(), user.ID, req)
	if err != nil {
		return serviceError(err, "Could not create task")
	}
	common.Respond(w, http.StatusCreated, "Task created successfully", task)
	return nil
}

// ListTasks godoc
// @Summary      List tasks created by or assigned to the caller
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "pending, in-progress or completed"
// @Param        priority   query     string  false  "low, medium or high"
// @Param        category   query     string  false  "Category"
// @Param        projectId  query     string  false  "Project ID"
// @Param        search     query     string  false  "Matches title, description and tags"
// @Param        page       query     int     false  "Page (default 1)"
// @Param        limit      query     int     false  "Page size (default 10, max 100)"
// @Param        sortBy     query     string  false  "dueDate, createdAt, updatedAt, priority, status or title"
// @Param        sortOrder  query     string  false  "asc or desc"
// @Success      200        {object}  common.APIResponse{data=[]model.Task,pagination=model.TaskPagination}
// @Failure      400        {object}  common.AppError
// @Router       /api/task [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	filter, appErr := parseTaskFilter(r.URL.Query(), user.ID)
	if appErr != nil {
		return appErr
	}

	tasks, pagination, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		return serviceError(err, "Could not retrieve tasks")
	}
	common.RespondWithPagination(w, http.StatusOK, "Tasks fetched successfully", tasks, pagination)
	return nil
}

// GetTaskStats godoc
// @Summary      Task statistics for the caller
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse{data=model.TaskStats}
// @Router       /api/task/stats [get]
func (h *TaskHandler) GetTaskStats(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}

	stats, err := h.tasks.GetTaskStats(r.Context(), user.ID)
	if err != nil {
		return serviceError(err, "Could not retrieve task statistics")
	}
	common.Respond(w, http.StatusOK, "Task statistics fetched successfully", stats)
	return nil
}

// ListProjectTasks godoc
// @Summary      Tasks of one of the caller's projects
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      string  true   "Project ID"
// @Param        status     query     string  false  "pending, in-progress or completed"
// @Param        priority   query     string  false  "low, medium or high"
// @Param        assignee   query     string  false  "Assignee user ID"
// @Success      200        {object}  common.APIResponse{data=[]model.Task}
// @Failure      404        {object}  common.AppError
// @Router       /api/task/project/{projectId} [get]
func (h *TaskHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		return appErr
	}
	q := r.URL.Query()
	status, appErr := queryStatus(q)
	if appErr != nil {
		return appErr
	}

	tasks, err := h.tasks.ListProjectTasks(r.Context(), user.ID, model.ProjectTaskFilter{
		ProjectID:  projectID,
		Status:     status,
		Priority:   model.Priority(strings.TrimSpace(q.Get("priority"))),
		AssigneeID: strings.TrimSpace(q.Get("assignee")),
	})
	if err != nil {
		return serviceError(err, "Could not retrieve project tasks")
	}
	common.Respond(w, http.StatusOK, "Project tasks fetched successfully", tasks)
	return nil
}

// GetTask godoc
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        taskId  path      string  true  "Task ID"
// @Success      200     {object}  common.APIResponse{data=model.Task}
// @Failure      400     {object}  common.AppError
// @Failure      404     {object}  common.AppError
// @Router       /api/task/{taskId} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := taskIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	task, err := h.tasks.GetTask(r.Context(), id, user.ID)
	if err != nil {
		return serviceError(err, "Could not retrieve task")
	}
	common.Respond(w, http.StatusOK, "Task fetched successfully", task)
	return nil
}

// UpdateTask godoc
// @Summary      Update a task
// @Description  Only the fields present in the body are changed. An empty projectId detaches the task.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        taskId  path      string                   true  "Task ID"
// @Param        task    body      model.UpdateTaskRequest  true  "Fields to change"
// @Success      200     {object}  common.APIResponse{data=model.Task}
// @Failure      400     {object}  common.AppError
// @Failure      404     {object}  common.AppError
// @Router       /api/task/{taskId} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := taskIDFromPath(r)
	if appErr != nil {
		return appErr
	}
	var req model.UpdateTaskRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	task, err := h.tasks.UpdateTask(r.Context(), id, user.ID, req)
	if err != nil {
		return serviceError(err, "Could not update task")
	}
	common.Respond(w, http.StatusOK, "Task updated successfully", task)
	return nil
}

// UpdateTaskStatus godoc
// @Summary      Change a task's status
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        taskId  path      string                         true  "Task ID"
// @Param        status  body      model.UpdateTaskStatusRequest  true  "New status"
// @Success      200     {object}  common.APIResponse{data=model.Task}
// @Failure      400     {object}  common.AppError
// @Failure      404     {object}  common.AppError
// @Router       /api/task/{taskId}/status [patch]
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := taskIDFromPath(r)
	if appErr != nil {
		return appErr
	}
	var req model.UpdateTaskStatusRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	task, err := h.tasks.UpdateTaskStatus(r.Context(), id, user.ID, req.Status)
	if err != nil {
		return serviceError(err, "Could not update task status")
	}
	common.Respond(w, http.StatusOK, "Task status updated successfully", task)
	return nil
}

// DeleteTask godoc
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        taskId  path      string  true  "Task ID"
// @Success      200     {object}  common.APIResponse
// @Failure      404     {object}  common.AppError
// @Router       /api/task/{taskId} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := userFromRequest(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := taskIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	if err := h.tasks.DeleteTask(r.Context(), id, user.ID); err != nil {
		return serviceError(err, "Could not delete task")
	}
	common.Respond(w, http.StatusOK, "Task deleted successfully", struct{}{})
	return nil
}
