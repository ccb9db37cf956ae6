package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/service"
	"github.com/noah-isme/lms-portal-api/internal/utils"
)

// CourseHandler manages course, lesson and enrollment endpoints.
type CourseHandler struct {
	service   service.CourseService
	activity  service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseHandler builds a course handler instance.
func NewCourseHandler(service service.CourseService, activity service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service:   service,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches the course routes to the provided router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/mine", h.myCourses)
	router.Put("/lessons/:lesson_id", h.updateLesson)
	router.Delete("/lessons/:lesson_id", h.deleteLesson)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/lessons", h.addLesson)
	router.Post("/:id/enroll", h.enroll)
	router.Delete("/:id/enroll", h.unenroll)
	router.Get("/:id/roster", h.roster)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	courses, err := h.service.List(requestContext(c), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := requestContext(c)
	actor := actorFromContext(c)
	course, err := h.service.Create(ctx, actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(ctx, actor, "course.created", "course", &course.ID, nil)
	}

	return utils.SendCreated(c, "course created", course)
}

func (h *CourseHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CourseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course updated", course)
}

func (h *CourseHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := requestContext(c)
	actor := actorFromContext(c)
	if err := h.service.Delete(ctx, actor, id); err != nil {
		return h.handleError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(ctx, actor, "course.deleted", "course", &id, nil)
	}

	return utils.SendSuccess(c, "course deleted", nil)
}

func (h *CourseHandler) addLesson(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	lesson, err := h.service.AddLesson(requestContext(c), actorFromContext(c), courseID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "lesson created", lesson)
}

func (h *CourseHandler) updateLesson(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "lesson_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	lesson, err := h.service.UpdateLesson(requestContext(c), actorFromContext(c), lessonID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lesson updated", lesson)
}

func (h *CourseHandler) deleteLesson(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "lesson_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteLesson(requestContext(c), actorFromContext(c), lessonID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lesson deleted", nil)
}

func (h *CourseHandler) enroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	studentID := actor.UserID

	var payload struct {
		StudentID uint `json:"student_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
		if payload.StudentID > 0 {
			studentID = payload.StudentID
		}
	}

	enrollment, err := h.service.Enroll(requestContext(c), actor, courseID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "enrollment created", enrollment)
}

func (h *CourseHandler) unenroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	studentID := actor.UserID
	if override, err := parseQueryUint(c, "student_id"); err == nil && override != nil {
		studentID = *override
	}

	if err := h.service.Unenroll(requestContext(c), actor, courseID, studentID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollment removed", nil)
}

func (h *CourseHandler) roster(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.Roster(requestContext(c), actorFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roster retrieved", roster)
}

func (h *CourseHandler) myCourses(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	enrollments, err := h.service.MyCourses(requestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *CourseHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrLessonNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "lesson not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "course belongs to another teacher")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, "student not enrolled in course")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("course request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
