package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/api/middleware"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/service"

	"github.com/gin-gonic/gin"
)

// createTaskRequest 创建任务的请求参数。completed / user_id 不接受客户端输入。
type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// updateTaskRequest 部分更新，缺省字段保持不变；description 显式为 null 时清空。
type updateTaskRequest struct {
	Title       *string        `json:"title"`
	Description optionalString `json:"description"`
	Completed   *bool          `json:"completed"`
}

// optionalString 区分字段缺省与显式 null。
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// handleListTasks 列出当前用户的任务。
//
// GET /:user_id/tasks?status=&sort=&order=&skip=&limit=
func (s *Server) handleListTasks(c *gin.Context) {
	const op = "api.ListTasks"
	userID := getUserID(c)

	skip, ok := parseQueryInt(c, "skip", 0)
	if !ok {
		middleware.WriteError(c, apperr.Validation(op, "skip must be an integer"))
		return
	}
	limit, ok := parseQueryInt(c, "limit", 0)
	if !ok {
		middleware.WriteError(c, apperr.Validation(op, "limit must be an integer"))
		return
	}
	status := c.Query("status")
	if status == "" {
		status = c.Query("status_filter")
	}

	tasks, err := s.taskService.ListTasks(c.Request.Context(), userID, service.ListOptions{
		Status: service.ParseStatusFilter(status),
		Sort:   service.ParseSortKey(c.Query("sort")),
		Order:  service.ParseSortOrder(c.Query("order")),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.TaskViews(tasks))
}

// handleCreateTask 创建任务。
//
// POST /:user_id/tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteBindError(c, "api.CreateTask", err)
		return
	}

	task, err := s.taskService.CreateTask(c.Request.Context(), getUserID(c), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task.View())
}

// handleGetTask 返回单个任务。
//
// GET /:user_id/tasks/:task_id
func (s *Server) handleGetTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	task, err := s.taskService.GetTask(c.Request.Context(), getUserID(c), taskID)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, task.View())
}

// handleUpdateTask 部分更新任务。
//
// PUT /:user_id/tasks/:task_id
func (s *Server) handleUpdateTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteBindError(c, "api.UpdateTask", err)
		return
	}

	in := service.UpdateTaskInput{
		Title:     req.Title,
		Completed: req.Completed,
	}
	if req.Description.Set {
		in.Description = req.Description.Value
		in.ClearDescription = req.Description.Value == nil
	}
	task, err := s.taskService.UpdateTask(c.Request.Context(), getUserID(c), taskID, in)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, task.View())
}

// handleToggleTask 翻转完成状态。
//
// PATCH /:user_id/tasks/:task_id/toggle
func (s *Server) handleToggleTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	task, err := s.taskService.ToggleTask(c.Request.Context(), getUserID(c), taskID)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, task.View())
}

// handleDeleteTask 删除任务，成功返回 204。
//
// DELETE /:user_id/tasks/:task_id
func (s *Server) handleDeleteTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	if err := s.taskService.DeleteTask(c.Request.Context(), getUserID(c), taskID); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseQueryInt 解析整数查询参数；缺省时返回 def，格式错误时 ok 为 false。
func parseQueryInt(c *gin.Context, key string, def int) (int, bool) {
	val := c.Query(key)
	if val == "" {
		return def, true
	}
	iv, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return iv, true
}

// taskIDParam 解析 :task_id，失败时直接写出 400。
func taskIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("task_id"), 10, 64)
	if err != nil {
		middleware.WriteError(c, apperr.Validation("api.taskID", "invalid task_id"))
		return 0, false
	}
	return uint(id), true
}

func getUserID(c *gin.Context) uint {
	id, _ := middleware.UserIDFrom(c)
	return id
}
