package handlers

import (
	"strconv"

	"medbot-server/internal/accounts"
	"medbot-server/internal/appointments"
	"medbot-server/internal/directory"
	"medbot-server/internal/logging"
	"medbot-server/internal/models"
	"medbot-server/internal/specialty"
	"medbot-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// DoctorHandler lets admins manage the doctor directory. Logins and
// appointments follow directory changes.
type DoctorHandler struct {
	Directory    *directory.Directory
	Accounts     *accounts.Registry
	Appointments *appointments.Manager
	Resolver     *specialty.Resolver
	Logger       *logging.Logger
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(dir *directory.Directory, registry *accounts.Registry, mgr *appointments.Manager, resolver *specialty.Resolver, logger *logging.Logger) *DoctorHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if resolver == nil {
		resolver = specialty.Default()
	}
	return &DoctorHandler{Directory: dir, Accounts: registry, Appointments: mgr, Resolver: resolver, Logger: logger}
}

// DoctorRequest is the body for adding or editing a doctor. Slots may be a
// list or a comma separated string; a blank username is derived from the
// name.
type DoctorRequest struct {
	Name      string          `json:"name" binding:"required" validate:"notblank"`
	Specialty string          `json:"specialty" binding:"required" validate:"notblank"`
	Rating    float64         `json:"rating" binding:"gte=0,lte=5"`
	Slots     models.SlotList `json:"slots"`
	Username  string          `json:"username"`
}

func (r DoctorRequest) doctor() models.Doctor {
	return models.Doctor{
		Name:      r.Name,
		Specialty: r.Specialty,
		Rating:    r.Rating,
		Slots:     r.Slots,
		Username:  r.Username,
	}
}

// IndexedDoctor is a directory entry with its position.
type IndexedDoctor struct {
	Index int `json:"index"`
	models.Doctor
}

// GetDoctors lists the directory in stored order.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	doctors := h.Directory.List()
	out := make([]IndexedDoctor, 0, len(doctors))
	for i, doc := range doctors {
		out = append(out, IndexedDoctor{Index: i, Doctor: doc})
	}
	utils.Success(c, "Doctors fetched successfully", out)
}

// GetSpecialties lists the specialties symptoms resolve to, in table
// order, followed by any other specialty already in the directory.
func (h *DoctorHandler) GetSpecialties(c *gin.Context) {
	specs := h.Resolver.Specialties()
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		seen[s] = true
	}
	for _, doc := range h.Directory.List() {
		if !seen[doc.Specialty] {
			seen[doc.Specialty] = true
			specs = append(specs, doc.Specialty)
		}
	}
	utils.Success(c, "Specialties fetched successfully", specs)
}

// CreateDoctor appends a doctor and opens a login for it.
func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req DoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doc, err := h.Directory.Add(c.Request.Context(), req.doctor())
	if err != nil {
		utils.RespondError(c, err, "Failed to add doctor")
		return
	}
	if err := h.Accounts.UpsertDoctor(doc); err != nil {
		utils.InternalServerError(c, "Doctor added but login could not be created: "+err.Error())
		return
	}
	utils.Created(c, "Doctor "+doc.Name+" added (username: "+doc.Username+")", doc)
}

// UpdateDoctor replaces the doctor at :index. A changed username moves the
// login; existing appointments keep the username they were booked with.
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.BadRequest(c, "Invalid doctor index")
		return
	}
	var req DoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	previous, updated, err := h.Directory.Edit(c.Request.Context(), index, req.doctor())
	if err != nil {
		utils.RespondError(c, err, "Failed to save changes")
		return
	}
	if err := h.Accounts.RenameDoctor(previous, updated); err != nil {
		utils.InternalServerError(c, "Doctor updated but login could not be moved: "+err.Error())
		return
	}
	utils.Success(c, "Doctor updated", updated)
}

// DoctorRemoval reports a doctor deletion and its cascade.
type DoctorRemoval struct {
	Doctor              models.Doctor `json:"doctor"`
	RemovedAppointments int           `json:"removedAppointments"`
}

// DeleteDoctor removes the doctor at :index together with its login and
// every appointment booked with it.
func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.BadRequest(c, "Invalid doctor index")
		return
	}
	ctx := c.Request.Context()

	removed, err := h.Directory.Remove(ctx, index)
	if err != nil {
		utils.RespondError(c, err, "Failed to delete doctor")
		return
	}
	h.Accounts.RemoveDoctor(removed.Username)

	count, err := h.Appointments.DeleteByDoctor(ctx, removed.Username)
	if err != nil {
		h.Logger.Error("doctor removed but appointments remain", "doctor_username", removed.Username, "error", err)
		utils.InternalServerError(c, "Doctor removed but appointments could not be deleted: "+err.Error())
		return
	}
	utils.Success(c, "Doctor "+removed.Name+" deleted", DoctorRemoval{Doctor: removed, RemovedAppointments: count})
}
