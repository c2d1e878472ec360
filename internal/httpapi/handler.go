package httpapi

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/metrics"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves the attendance endpoints.
type Handler struct {
	svc             *attendance.Service
	signer          auth.Signer
	formatter       attendance.ReportFormatter
	registrationKey string
	recent          int
}

// NewHandler wires a handler. An empty registrationKey disables device
// self-registration.
func NewHandler(svc *attendance.Service, signer auth.Signer, formatter attendance.ReportFormatter, registrationKey string, recent int) *Handler {
	return &Handler{
		svc:             svc,
		signer:          signer,
		formatter:       formatter,
		registrationKey: registrationKey,
		recent:          recent,
	}
}

// ---------- Devices ----------

type registerDeviceRequest struct {
	DeviceID        string `json:"device_id" binding:"required"`
	RegistrationKey string `json:"registration_key" binding:"required"`
}

func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.registrationKey == "" || subtle.ConstantTimeCompare([]byte(req.RegistrationKey), []byte(h.registrationKey)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "device registration refused"})
		return
	}

	tokens, err := h.signer.Issue(req.DeviceID, auth.RoleDevice)
	if err != nil {
		slog.Error("token issue failed", "device_id", req.DeviceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	slog.Info("device registered", "device_id", req.DeviceID)

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) RefreshDevice(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := h.signer.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Check-ins ----------

type checkInRequest struct {
	AttendeeID string `json:"attendee_id" binding:"required"`
	// OccurredAt is unix seconds; zero means now.
	OccurredAt int64 `json:"occurred_at"`
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OccurredAt < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "occurred_at must be unix seconds"})
		return
	}

	var at time.Time
	if req.OccurredAt > 0 {
		at = time.Unix(req.OccurredAt, 0)
	}
	deviceID := ""
	if claims, ok := auth.ClaimsFrom(c); ok {
		deviceID = claims.Subject
	}

	evt, err := h.svc.CheckIn(c.Request.Context(), req.AttendeeID, deviceID, at)
	switch {
	case errors.Is(err, attendance.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, attendance.ErrAttendeeRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		slog.Error("check-in failed", "attendee_id", req.AttendeeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check-in failed"})
		return
	}

	window := h.svc.Schedule().WindowFor(h.svc.Schedule().DateOf(evt.OccurredAt))
	c.JSON(http.StatusAccepted, gin.H{
		"event":  evt,
		"status": attendance.Classify(evt.OccurredAt, window),
	})
}

// CheckIns lists every scan of the date by a roster attendee, newest first,
// including out-of-hours and repeat scans.
func (h *Handler) CheckIns(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	logs, err := h.svc.Logs(c.Request.Context(), date)
	if err != nil {
		slog.Error("check-in log failed", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load check-ins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "checkins": logs})
}

// ---------- Roster ----------

type createAttendeeRequest struct {
	ID        string `json:"id" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
}

func (h *Handler) ListAttendees(c *gin.Context) {
	roster, err := h.svc.Attendees(c.Request.Context())
	if err != nil {
		slog.Error("list attendees failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load roster"})
		return
	}
	if roster == nil {
		roster = []attendance.Attendee{}
	}
	c.JSON(http.StatusOK, gin.H{"attendees": roster})
}

func (h *Handler) CreateAttendee(c *gin.Context) {
	var req createAttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.svc.Register(c.Request.Context(), attendance.Attendee{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	switch {
	case errors.Is(err, attendance.ErrAttendeeExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, attendance.ErrInvalidAttendee):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		slog.Error("register attendee failed", "attendee_id", req.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register attendee"})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) DeleteAttendee(c *gin.Context) {
	id := c.Param("id")
	err := h.svc.Remove(c.Request.Context(), id)
	switch {
	case errors.Is(err, attendance.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		slog.Error("remove attendee failed", "attendee_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove attendee"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Attendance views ----------

func (h *Handler) Attendance(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	status, err := attendance.ParseStatus(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.svc.Report(c.Request.Context(), date, attendance.Filter{Query: c.Query("q"), Status: status})
	if err != nil {
		slog.Error("attendance report failed", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    date,
		"window":  h.svc.Schedule().WindowFor(date),
		"records": records,
	})
}

func (h *Handler) Dashboard(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	recent := h.recent
	if v := c.Query("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recent must be a non-negative integer"})
			return
		}
		recent = n
	}

	sum, err := h.svc.Dashboard(c.Request.Context(), date, recent)
	if err != nil {
		slog.Error("dashboard failed", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load dashboard"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) Export(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	records, err := h.svc.Report(c.Request.Context(), date, attendance.Filter{})
	if err != nil {
		slog.Error("export failed", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+attendance.ReportFilename(date, format)+`"`)
	if format == "xlsx" {
		var buf bytes.Buffer
		if err := h.formatter.WriteXLSX(&buf, records); err != nil {
			slog.Error("xlsx export failed", "date", date, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build report"})
			return
		}
		metrics.Export(format)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
		return
	}
	metrics.Export(format)
	c.Data(http.StatusOK, csvContentType, h.formatter.Format(records))
}

// date reads the date query parameter, defaulting to today in the
// reference timezone. It writes a 400 and returns false when malformed.
func (h *Handler) date(c *gin.Context) (civil.Date, bool) {
	raw := c.Query("date")
	if raw == "" {
		return h.svc.Today(), true
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return civil.Date{}, false
	}
	return d, true
}
