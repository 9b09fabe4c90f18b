package handlers

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"medbot-server/internal/appointments"
	"medbot-server/internal/history"
	"medbot-server/internal/middleware"
	"medbot-server/internal/models"
	"medbot-server/internal/utils"

	"github.com/gin-gonic/gin"
)

const day = 24 * time.Hour

// maxDays is the largest day count a time.Duration can hold.
const maxDays = int(math.MaxInt64 / int64(day))

// AppointmentHandler serves the doctor and admin appointment dashboards.
type AppointmentHandler struct {
	Appointments *appointments.Manager
	History      *history.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(mgr *appointments.Manager, hist *history.Service) *AppointmentHandler {
	return &AppointmentHandler{Appointments: mgr, History: hist}
}

// GetAppointmentsForUser lists appointments visible to the caller: every
// appointment in stored order for admins, a doctor's own newest first.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var (
		rows []models.Appointment
		err  error
	)
	switch actor.Role {
	case models.RoleAdmin:
		rows, err = h.Appointments.All(c.Request.Context())
	case models.RoleDoctor:
		rows, err = h.Appointments.ForDoctor(c.Request.Context(), actor.Username)
	default:
		utils.Forbidden(c, "User role not permitted to view appointments this way. Role: "+string(actor.Role))
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	if rows == nil {
		rows = []models.Appointment{}
	}
	utils.Success(c, "Appointments fetched successfully", rows)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required" validate:"notblank"`
}

// UpdateAppointmentStatus handles updating the status of an appointment.
// Doctors may only act on their own appointments.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var appt models.Appointment
	if status == models.StatusCompleted {
		appt, err = h.Appointments.Complete(c.Request.Context(), c.Param("id"), actor)
	} else {
		appt, err = h.Appointments.Transition(c.Request.Context(), c.Param("id"), status, actor)
	}
	if err != nil {
		utils.RespondError(c, err, "Failed to update appointment status")
		return
	}
	utils.Success(c, "Appointment status updated successfully", appt)
}

// UpdateStatusByKeyRequest addresses an appointment by patient and slot.
type UpdateStatusByKeyRequest struct {
	Patient string `json:"patient" binding:"required" validate:"notblank"`
	Time    string `json:"time" binding:"required" validate:"notblank"`
	Status  string `json:"status" binding:"required" validate:"notblank"`
}

// UpdateStatusByKey updates the first of the doctor's appointments with
// the given patient and slot.
func (h *AppointmentHandler) UpdateStatusByKey(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req UpdateStatusByKeyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	key := models.NaturalKey{Patient: strings.TrimSpace(req.Patient), DoctorUsername: actor.Username, Time: strings.TrimSpace(req.Time)}
	var updated bool
	if status == models.StatusCompleted {
		updated, err = h.Appointments.CompleteByKey(c.Request.Context(), key, actor)
	} else {
		updated, err = h.Appointments.TransitionByKey(c.Request.Context(), key, status, actor)
	}
	if err != nil {
		utils.RespondError(c, err, "Failed to update appointment status")
		return
	}
	if !updated {
		utils.NotFound(c, "Appointment not found")
		return
	}
	utils.Success(c, "Appointment status updated successfully", key)
}

// DeleteAppointment removes an appointment by id.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	appt, err := h.Appointments.Delete(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		utils.RespondError(c, err, "Failed to delete appointment")
		return
	}
	utils.Success(c, "Appointment deleted", appt)
}

// DeleteMatchingRequest identifies an appointment by patient, slot and
// creation time.
type DeleteMatchingRequest struct {
	Patient   string `json:"patient" binding:"required" validate:"notblank"`
	Time      string `json:"time" binding:"required" validate:"notblank"`
	CreatedAt string `json:"createdAt" binding:"required" validate:"notblank"`
}

// DeleteMatching removes the doctor's appointment with the exact patient,
// slot and created_at.
func (h *AppointmentHandler) DeleteMatching(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req DeleteMatchingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	key := models.NaturalKey{Patient: strings.TrimSpace(req.Patient), DoctorUsername: actor.Username, Time: strings.TrimSpace(req.Time)}
	removed, err := h.Appointments.DeleteMatching(c.Request.Context(), key, req.CreatedAt, actor)
	if err != nil {
		utils.RespondError(c, err, "Failed to delete appointment")
		return
	}
	if !removed {
		utils.NotFound(c, "Could not find appointment to delete")
		return
	}
	utils.Success(c, "Appointment deleted", key)
}

// DeleteResult reports how many appointments a bulk delete removed.
type DeleteResult struct {
	Removed int `json:"removed"`
	Days    int `json:"days"`
}

// DeleteOlderThan removes the doctor's appointments created more than
// olderThanDays days ago. At least one day is required.
func (h *AppointmentHandler) DeleteOlderThan(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	days, err := parseDays(c.Query("olderThanDays"), 1)
	if err != nil {
		utils.BadRequest(c, "olderThanDays "+err.Error())
		return
	}

	removed, err := h.Appointments.BulkDeleteOlderThan(c.Request.Context(), appointments.Scope{DoctorUsername: actor.Username}, time.Duration(days)*day)
	if err != nil {
		utils.RespondError(c, err, "Failed to delete appointments")
		return
	}
	utils.Success(c, "Deleted "+strconv.Itoa(removed)+" appointment(s) older than "+strconv.Itoa(days)+" days", DeleteResult{Removed: removed, Days: days})
}

// DeleteAt removes the appointment at a position of the stored list.
func (h *AppointmentHandler) DeleteAt(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.BadRequest(c, "Invalid appointment index")
		return
	}
	appt, err := h.Appointments.DeleteAt(c.Request.Context(), index)
	if err != nil {
		utils.RespondError(c, err, "Failed to delete appointment")
		return
	}
	utils.Success(c, "Deleted appointment", appt)
}

// ConditionalDeleteResult reports the outcome of DeleteIfOlder.
type ConditionalDeleteResult struct {
	Deleted bool `json:"deleted"`
	Days    int  `json:"days"`
}

// DeleteIfOlder removes the appointment at index only when it was created
// more than days days ago. days defaults to 0.
func (h *AppointmentHandler) DeleteIfOlder(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.BadRequest(c, "Invalid appointment index")
		return
	}
	days, err := parseDays(c.DefaultQuery("days", "0"), 0)
	if err != nil {
		utils.BadRequest(c, "days "+err.Error())
		return
	}

	deleted, err := h.Appointments.DeleteIfOlder(c.Request.Context(), index, time.Duration(days)*day)
	if err != nil {
		utils.RespondError(c, err, "Failed to delete appointment")
		return
	}
	msg := "No deletion: appointment not older than cutoff"
	if deleted {
		msg = "Deleted appointment (older than cutoff)"
	}
	utils.Success(c, msg, ConditionalDeleteResult{Deleted: deleted, Days: days})
}

// GetPatientHistory returns the visit history of a patient the doctor
// has seen or been booked by.
func (h *AppointmentHandler) GetPatientHistory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	patient := strings.TrimSpace(c.Param("username"))
	ctx := c.Request.Context()

	if actor.Role == models.RoleDoctor {
		mine, err := h.Appointments.ForDoctor(ctx, actor.Username)
		if err != nil {
			utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
			return
		}
		if !hasPatient(mine, patient) {
			utils.Forbidden(c, "You are not authorized to view this patient's history")
			return
		}
	}

	visits, err := h.History.HistoryFor(ctx, patient)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch history: "+err.Error())
		return
	}
	utils.Success(c, "History fetched successfully", visits)
}

// actorFromContext builds the acting user from the auth context, writing
// a 401 when it is missing.
func actorFromContext(c *gin.Context) (appointments.Actor, bool) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return appointments.Actor{}, false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role not found")
		return appointments.Actor{}, false
	}
	return appointments.Actor{Role: role, Username: username}, true
}

func parseDays(raw string, minimum int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errors.New("is required")
	}
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if days < minimum {
		return 0, errors.New("must be at least " + strconv.Itoa(minimum))
	}
	if days > maxDays {
		return 0, errors.New("must be at most " + strconv.Itoa(maxDays))
	}
	return days, nil
}

func hasPatient(rows []models.Appointment, patient string) bool {
	for _, a := range rows {
		if a.Patient == patient {
			return true
		}
	}
	return false
}
