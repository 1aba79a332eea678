package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/infrastructure/logger"
	"github.com/weightandsee/core/internal/ports"
)

// ExerciseHandler handles exercise-related requests
type ExerciseHandler struct {
	store  ports.ExerciseStore
	logger *logger.Logger
}

// NewExerciseHandler creates a new exercise handler
func NewExerciseHandler(store ports.ExerciseStore, logger *logger.Logger) *ExerciseHandler {
	return &ExerciseHandler{
		store:  store,
		logger: logger,
	}
}

// ListExercises godoc
// @Summary List exercises
// @Description One summary row per exercise, ordered by name
// @Tags exercises
// @Produce json
// @Success 200 {array} ports.ExerciseSummary
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List())
}

// GetExercise godoc
// @Summary Get exercise by name
// @Tags exercises
// @Produce json
// @Param name path string true "Exercise name"
// @Success 200 {object} entities.Exercise
// @Failure 404 {object} ports.ErrorResponse
// @Router /exercises/{name} [get]
func (h *ExerciseHandler) GetExercise(c echo.Context) error {
	name := nameParam(c)
	ex, ok := h.store.Exercise(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Exercise not found")
	}
	return c.JSON(http.StatusOK, ex)
}

// GetFields returns the per-field accessor bundle
func (h *ExerciseHandler) GetFields(c echo.Context) error {
	name := nameParam(c)
	fields, ok := h.store.Fields(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Exercise not found")
	}
	return c.JSON(http.StatusOK, fields)
}

// GetHistory returns the history oldest first. Unknown exercises have an
// empty history.
func (h *ExerciseHandler) GetHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.History(nameParam(c)))
}

// AddExercise godoc
// @Summary Add or overwrite an exercise
// @Tags exercises
// @Accept json
// @Produce json
// @Param request body ports.AddExerciseRequest true "Exercise data"
// @Success 201 {object} entities.Exercise
// @Failure 400 {object} ports.ErrorResponse
// @Router /exercises [post]
func (h *ExerciseHandler) AddExercise(c echo.Context) error {
	var req ports.AddExerciseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.store.AddExercise(c.Request().Context(), req); err != nil {
		h.logger.Errorw("Add exercise failed", "error", err, "exercise", req.Name)
		return storeError(err)
	}

	ex, _ := h.store.Exercise(req.Name)
	return c.JSON(http.StatusCreated, ex)
}

// UpdateExercise records a new measurement
func (h *ExerciseHandler) UpdateExercise(c echo.Context) error {
	name := nameParam(c)

	var req ports.UpdateExerciseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.store.UpdateExercise(c.Request().Context(), name, req); err != nil {
		h.logger.Errorw("Update exercise failed", "error", err, "exercise", name)
		return storeError(err)
	}

	ex, _ := h.store.Exercise(name)
	return c.JSON(http.StatusOK, ex)
}

// DeleteExercise removes an exercise with its history
func (h *ExerciseHandler) DeleteExercise(c echo.Context) error {
	name := nameParam(c)
	if err := h.store.RemoveExercise(c.Request().Context(), name); err != nil {
		h.logger.Errorw("Delete exercise failed", "error", err, "exercise", name)
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteHistoryEntry removes one measurement, indexed oldest first
func (h *ExerciseHandler) DeleteHistoryEntry(c echo.Context) error {
	name := nameParam(c)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid history index")
	}

	if err := h.store.RemoveHistoryEntry(c.Request().Context(), name, index); err != nil {
		h.logger.Errorw("Delete history entry failed", "error", err, "exercise", name, "index", index)
		return storeError(err)
	}

	ex, _ := h.store.Exercise(name)
	return c.JSON(http.StatusOK, ex)
}

// DocumentHandler handles whole-document requests
type DocumentHandler struct {
	store  ports.ExerciseStore
	logger *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(store ports.ExerciseStore, logger *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:  store,
		logger: logger,
	}
}

// GetDocument returns the raw document
func (h *DocumentHandler) GetDocument(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Document())
}

// Reload re-runs the self-healing load
func (h *DocumentHandler) Reload(c echo.Context) error {
	doc, err := h.store.Load(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Reload failed", "error", err)
		return storeError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Reset replaces the document with the default or sample data
func (h *DocumentHandler) Reset(c echo.Context) error {
	var req ports.ResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	var err error
	if req.Sample {
		err = h.store.ResetToSample(c.Request().Context())
	} else {
		err = h.store.ResetToDefault(c.Request().Context())
	}
	if err != nil {
		h.logger.Errorw("Reset failed", "error", err, "sample", req.Sample)
		return storeError(err)
	}

	return c.JSON(http.StatusOK, h.store.List())
}

// DeleteAll empties the document
func (h *DocumentHandler) DeleteAll(c echo.Context) error {
	if err := h.store.DeleteAll(c.Request().Context()); err != nil {
		h.logger.Errorw("Delete all failed", "error", err)
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Export writes the document to a caller-supplied path
func (h *DocumentHandler) Export(c echo.Context) error {
	var req ports.TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.store.Export(c.Request().Context(), req.Path); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Export complete"})
}

// Import replaces the document with one read from a caller-supplied path
func (h *DocumentHandler) Import(c echo.Context) error {
	var req ports.TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.store.Import(c.Request().Context(), req.Path); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, h.store.List())
}

// Utility functions

func nameParam(c echo.Context) string {
	raw := c.Param("name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return name
}

func storeError(err error) error {
	switch {
	case errors.Is(err, entities.ErrExerciseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Exercise not found")
	case errors.Is(err, entities.ErrHistoryIndexOutOfRange):
		return echo.NewHTTPError(http.StatusBadRequest, "History index out of range")
	case errors.Is(err, entities.ErrInvalidExerciseName):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid exercise name")
	case errors.Is(err, entities.ErrInvalidMeasurement):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid measurement value")
	case errors.Is(err, entities.ErrImportFailed), errors.Is(err, entities.ErrExportFailed):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}
