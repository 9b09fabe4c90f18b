package handlers

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"medbot-server/internal/appointments"
	"medbot-server/internal/conversation"
	"medbot-server/internal/directory"
	"medbot-server/internal/history"
	"medbot-server/internal/middleware"
	"medbot-server/internal/models"
	"medbot-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AnyTimeSlot is offered for doctors that list no slots.
const AnyTimeSlot = "Any time"

// PatientHandler serves recommendations, booking and history to patients.
type PatientHandler struct {
	Appointments  *appointments.Manager
	Conversations *conversation.Service
	Directory     *directory.Directory
	Ranker        *directory.Ranker
	History       *history.Service
	TopN          int
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(mgr *appointments.Manager, conversations *conversation.Service, dir *directory.Directory, ranker *directory.Ranker, hist *history.Service, topN int) *PatientHandler {
	return &PatientHandler{
		Appointments:  mgr,
		Conversations: conversations,
		Directory:     dir,
		Ranker:        ranker,
		History:       hist,
		TopN:          topN,
	}
}

// RecommendedDoctor is a ranked doctor with the slots a patient may pick.
type RecommendedDoctor struct {
	models.Doctor
	BookableSlots []string `json:"bookableSlots"`
}

// RecommendationResponse is the body of GET /doctors/recommended.
type RecommendationResponse struct {
	Symptom   string              `json:"symptom"`
	Specialty string              `json:"specialty"`
	Fallback  bool                `json:"fallback"`
	Doctors   []RecommendedDoctor `json:"doctors"`
}

// RecommendDoctors ranks doctors for the latest resolved symptom, or for
// the symptom query parameter when given.
func (h *PatientHandler) RecommendDoctors(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	topN := h.TopN
	if raw := c.Query("topN"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.BadRequest(c, "topN must be a positive integer")
			return
		}
		topN = n
	}

	symptom := strings.TrimSpace(c.Query("symptom"))
	if symptom == "" {
		latest, found, err := h.Conversations.LatestSymptom(c.Request.Context(), username)
		if err != nil {
			utils.InternalServerError(c, "Failed to load conversation: "+err.Error())
			return
		}
		if !found {
			utils.Conflict(c, "Describe your symptom first")
			return
		}
		symptom = latest
	}

	rec := h.Ranker.Recommend(symptom, topN)
	resp := RecommendationResponse{
		Symptom:   symptom,
		Specialty: rec.Specialty,
		Fallback:  rec.Fallback,
		Doctors:   make([]RecommendedDoctor, 0, len(rec.Doctors)),
	}
	for _, doc := range rec.Doctors {
		resp.Doctors = append(resp.Doctors, RecommendedDoctor{Doctor: doc, BookableSlots: bookableSlots(doc)})
	}
	utils.Success(c, "Doctors fetched successfully", resp)
}

// BookAppointmentRequest is the body of POST /appointments.
type BookAppointmentRequest struct {
	// DoctorUsername may also be the doctor's display name.
	DoctorUsername string `json:"doctorUsername" binding:"required" validate:"notblank"`
	Time           string `json:"time"`
	Symptom        string `json:"symptom"`
}

// BookAppointment books the chosen doctor and slot for the latest
// resolved symptom.
func (h *PatientHandler) BookAppointment(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	doc, found := h.Directory.ByUsername(strings.TrimSpace(req.DoctorUsername))
	if !found {
		doc, found = h.Directory.FindByDisplayName(req.DoctorUsername)
	}
	if !found {
		utils.NotFound(c, "Doctor not found")
		return
	}
	slot, err := pickSlot(doc, req.Time)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	symptom, resolved, err := h.Conversations.LatestSymptom(ctx, username)
	if err != nil {
		utils.InternalServerError(c, "Failed to load conversation: "+err.Error())
		return
	}
	if !resolved {
		symptom = strings.TrimSpace(req.Symptom)
	}
	if symptom == "" {
		utils.Conflict(c, "Describe your symptom first")
		return
	}

	appt, err := h.Appointments.Book(ctx, appointments.BookRequest{
		Patient:        username,
		Doctor:         doc.Name,
		DoctorUsername: doc.Username,
		Time:           slot,
		Symptom:        symptom,
	})
	if err != nil {
		utils.RespondError(c, err, "Failed to book appointment")
		return
	}
	if resolved {
		if err := h.Conversations.FinishBooking(ctx, username); err != nil {
			utils.InternalServerError(c, "Appointment booked but conversation could not be reset: "+err.Error())
			return
		}
	}
	utils.Created(c, "Appointment requested", appt)
}

// LatestAppointment returns the patient's newest appointment.
func (h *PatientHandler) LatestAppointment(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	appt, found, err := h.Appointments.LatestForPatient(c.Request.Context(), username)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	if !found {
		utils.NotFound(c, "No bookings yet")
		return
	}
	utils.Success(c, "Latest appointment fetched successfully", appt)
}

// MyHistory returns the patient's visit history, newest first.
func (h *PatientHandler) MyHistory(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	visits, err := h.History.HistoryFor(c.Request.Context(), username)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch history: "+err.Error())
		return
	}
	utils.Success(c, "History fetched successfully", visits)
}

func bookableSlots(doc models.Doctor) []string {
	if len(doc.Slots) == 0 {
		return []string{AnyTimeSlot}
	}
	return append([]string(nil), doc.Slots...)
}

// pickSlot validates the requested slot against the doctor's list. An
// empty request takes the first bookable slot.
func pickSlot(doc models.Doctor, requested string) (string, error) {
	slots := bookableSlots(doc)
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return slots[0], nil
	}
	if !slices.Contains(slots, requested) {
		return "", errors.New("time must be one of: " + strings.Join(slots, ", "))
	}
	return requested, nil
}
