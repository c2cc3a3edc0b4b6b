package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

type handlers struct {
	b store.Backend
}

type nameBody struct {
	Name string `json:"name"`
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id: "+c.Param("id"))
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func (h handlers) health(c echo.Context) error {
	if err := h.b.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h handlers) listProjects(c echo.Context) error {
	ps, err := h.b.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

func (h handlers) getProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	tree, err := h.b.GetProjectTree(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tree)
}

func (h handlers) createProject(c echo.Context) error {
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	p, err := h.b.CreateProject(c.Request().Context(), body.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h handlers) renameProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	p, err := h.b.RenameProject(c.Request().Context(), id, body.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h handlers) deleteProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.b.DeleteProject(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h handlers) reorderProjects(c echo.Context) error {
	var items []model.ReorderItem
	if err := bind(c, &items); err != nil {
		return err
	}
	if err := h.b.ReorderProjects(c.Request().Context(), items); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h handlers) listColumns(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cols, err := h.b.ListColumns(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cols)
}

func (h handlers) createColumn(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	col, err := h.b.CreateColumn(c.Request().Context(), id, body.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, col)
}

func (h handlers) renameColumn(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	col, err := h.b.RenameColumn(c.Request().Context(), id, body.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, col)
}

func (h handlers) deleteColumn(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := h.b.DeleteColumn(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h handlers) reorderColumns(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var items []model.ReorderItem
	if err := bind(c, &items); err != nil {
		return err
	}
	if err := h.b.ReorderColumns(c.Request().Context(), id, items); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h handlers) listTasks(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ts, err := h.b.ListTasks(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ts)
}

func (h handlers) getTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.b.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h handlers) createTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in model.NewTask
	if err := bind(c, &in); err != nil {
		return err
	}
	// The path wins over any project_id in the body.
	in.ProjectID = id
	t, err := h.b.CreateTask(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h handlers) updateTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch model.TaskPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	t, err := h.b.UpdateTask(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h handlers) deleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := h.b.DeleteTask(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h handlers) bulkUpdateTasks(c echo.Context) error {
	var items []model.TaskPlacement
	if err := bind(c, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no tasks to update")
	}
	if _, err := h.b.BulkUpdateTasks(c.Request().Context(), items); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": len(items)})
}

func (h handlers) listSubtasks(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	subs, err := h.b.ListSubtasks(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

func (h handlers) createSubtask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	s, err := h.b.CreateSubtask(c.Request().Context(), id, body.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (h handlers) updateSubtask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch model.SubtaskPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	s, err := h.b.UpdateSubtask(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h handlers) deleteSubtask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.b.DeleteSubtask(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h handlers) listTags(c echo.Context) error {
	tags, err := h.b.ListTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (h handlers) createTag(c echo.Context) error {
	var body model.Tag
	if err := bind(c, &body); err != nil {
		return err
	}
	t, err := h.b.CreateTag(c.Request().Context(), body.Name, body.Color)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h handlers) deleteTag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.b.DeleteTag(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
