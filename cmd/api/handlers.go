package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/adherence"
	"classattend/internal/apperr"
	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/config"
	"classattend/internal/geo"
	"classattend/internal/schedule"
	"classattend/internal/session"
	"classattend/internal/verifyclient"
)

type server struct {
	cfg        config.App
	zones      *geo.Repository
	slots      *schedule.Repository
	sessions   *session.Repository
	records    *attendance.Repository
	adherence  *adherence.Repository
	openClose  *session.Service
	signing    *attendance.Service
	identities *verifyclient.Client
}

func (s *server) routes(g *gin.RouterGroup) {
	g.POST("/zones", auth.Require(auth.ActionManageZones), s.createZone)
	g.GET("/zones", s.listZones)
	g.PATCH("/zones/:id", auth.Require(auth.ActionManageZones), s.updateZone)
	g.DELETE("/zones/:id", auth.Require(auth.ActionManageZones), s.deleteZone)

	g.POST("/timetables", auth.Require(auth.ActionManageTimetables), s.createSlot)
	g.GET("/timetables", s.listSlots)

	g.POST("/sessions", auth.Require(auth.ActionOpenSession), s.openSession)
	g.GET("/sessions", s.listSessions)
	g.GET("/sessions/:id", s.getSession)
	g.POST("/sessions/:id/close", auth.Require(auth.ActionCloseSession), s.closeSession)

	g.POST("/sessions/:id/records", auth.Require(auth.ActionSignSelf), s.sign)
	g.POST("/sessions/:id/records/assisted", auth.Require(auth.ActionAssistedSign), s.assistedSign)
	g.GET("/sessions/:id/records", auth.Require(auth.ActionListRecords), s.listSessionRecords)
	g.POST("/records/:id/verify", auth.Require(auth.ActionVerifyRecord), s.verifyRecord)
	g.POST("/sessions/:id/manual-sign", auth.Require(auth.ActionManualSign), s.manualSign)

	g.GET("/adherence", auth.Require(auth.ActionViewAdherence), s.listAdherence)
}

// writeErr maps the error taxonomy to HTTP statuses. Policy rejections carry
// a machine-readable reason alongside the message.
func writeErr(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindPolicy:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": apperr.ReasonOf(err)})
	case apperr.KindAuthorization:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.KindTransient:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// maxPageSize caps listing responses regardless of the requested limit.
const maxPageSize = 500

func pageParams(c *gin.Context) (int, int) {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// login issues role-bearing tokens. Credential verification belongs to the
// external identity collaborator; this endpoint trusts upstream-authenticated
// callers and exists so the rest of the API can enforce capabilities.
func (s *server) login(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := auth.Role(req.Role)
	if !auth.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	tokens, err := auth.Issue(req.UserID, role, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (s *server) createZone(c *gin.Context) {
	var req struct {
		Name    string       `json:"name" binding:"required"`
		Corners [4]geo.Point `json:"corners" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zone, err := s.zones.Insert(c.Request.Context(), geo.Zone{Name: req.Name, Corners: req.Corners})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, zone)
}

func (s *server) listZones(c *gin.Context) {
	zones, err := s.zones.List(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones, "count": len(zones)})
}

func (s *server) updateZone(c *gin.Context) {
	var req struct {
		Name    string       `json:"name" binding:"required"`
		Corners [4]geo.Point `json:"corners" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zone, err := s.zones.Update(c.Request.Context(), geo.Zone{ID: c.Param("id"), Name: req.Name, Corners: req.Corners})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

func (s *server) deleteZone(c *gin.Context) {
	if err := s.zones.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) createSlot(c *gin.Context) {
	var req struct {
		CourseID   string `json:"course_id" binding:"required"`
		LecturerID string `json:"lecturer_id" binding:"required"`
		DayOfWeek  int    `json:"day_of_week"`
		StartTime  string `json:"start_time" binding:"required"`
		EndTime    string `json:"end_time" binding:"required"`
		IsMakeup   bool   `json:"is_makeup_class"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slot, err := s.slots.Insert(c.Request.Context(), schedule.Slot{
		CourseID:   req.CourseID,
		LecturerID: req.LecturerID,
		Day:        time.Weekday(req.DayOfWeek),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		IsMakeup:   req.IsMakeup,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (s *server) listSlots(c *gin.Context) {
	slots, err := s.slots.List(c.Request.Context(), c.Query("course_id"), c.Query("lecturer_id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timetables": slots, "count": len(slots)})
}

// sessionView augments the stored session with its clock-derived state.
type sessionView struct {
	session.Session
	State session.State `json:"state"`
}

func viewOf(sess session.Session, now time.Time) sessionView {
	return sessionView{Session: sess, State: sess.StateAt(now)}
}

func (s *server) openSession(c *gin.Context) {
	var req struct {
		TimetableID *string   `json:"timetable_id"`
		CourseID    string    `json:"course_id" binding:"required"`
		ZoneID      string    `json:"geolocation_zone_id" binding:"required"`
		EndTime     time.Time `json:"end_time" binding:"required"`
		IsMakeup    bool      `json:"is_makeup_class"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := auth.ClaimsFrom(c)
	now := time.Now().UTC()
	sess, err := s.openClose.Open(c.Request.Context(), session.OpenRequest{
		TimetableID: req.TimetableID,
		LecturerID:  claims.Subject,
		CourseID:    req.CourseID,
		ZoneID:      req.ZoneID,
		EndTime:     req.EndTime,
		IsMakeup:    req.IsMakeup,
	}, now)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(sess, now))
}

func (s *server) listSessions(c *gin.Context) {
	limit, offset := pageParams(c)
	sessions, total, err := s.sessions.List(c.Request.Context(), session.ListQuery{
		LecturerID: c.Query("lecturer_id"),
		CourseID:   c.Query("course_id"),
		ZoneID:     c.Query("zone_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	now := time.Now().UTC()
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewOf(sess, now))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views, "count": total})
}

func (s *server) getSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess, time.Now().UTC()))
}

func (s *server) closeSession(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	now := time.Now().UTC()
	sess, err := s.openClose.Close(c.Request.Context(), c.Param("id"), claims.Subject, now)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess, now))
}

func (s *server) sign(c *gin.Context) {
	var req struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := auth.ClaimsFrom(c)
	rec, err := s.signing.Sign(c.Request.Context(), c.Param("id"), claims.Subject,
		geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}, time.Now().UTC())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// assistedSign is the alternate identity channel: the lecturer submits a
// capture for a student without a registered device, the borrow-account
// collaborator vouches for the identity, and the normal sign-off rules run
// unchanged from there.
func (s *server) assistedSign(c *gin.Context) {
	var req struct {
		StudentID string   `json:"student_id" binding:"required"`
		ImageURL  string   `json:"image_url" binding:"required"`
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.identities.Verify(c.Request.Context(), req.StudentID, req.ImageURL)
	if err != nil {
		writeErr(c, apperr.Transient(err, "identity verification unavailable"))
		return
	}
	if !result.Verified {
		c.JSON(http.StatusForbidden, gin.H{"error": "identity verification failed"})
		return
	}
	rec, err := s.signing.Sign(c.Request.Context(), c.Param("id"), req.StudentID,
		geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}, time.Now().UTC())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// listSessionRecords exposes student GPS fixes, so reads are capability-gated:
// lecturers see only their own sessions, while hod and dean read across
// sessions for oversight.
func (s *server) listSessionRecords(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	claims := auth.ClaimsFrom(c)
	if claims.Role == auth.RoleLecturer && !sess.OwnedBy(claims.Subject) {
		c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another lecturer"})
		return
	}
	limit, offset := pageParams(c)
	records, total, err := s.records.List(c.Request.Context(), attendance.ListQuery{
		SessionID: sess.ID,
		Pending:   c.Query("pending") == "true",
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": total})
}

func (s *server) verifyRecord(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	rec, err := s.signing.Verify(c.Request.Context(), c.Param("id"), claims.Subject)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) manualSign(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := auth.ClaimsFrom(c)
	rec, err := s.signing.ManualSign(c.Request.Context(), c.Param("id"), req.StudentID, claims.Subject, time.Now().UTC())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *server) listAdherence(c *gin.Context) {
	limit, offset := pageParams(c)
	rows, total, err := s.adherence.List(c.Request.Context(), adherence.ListQuery{
		LecturerID: c.Query("lecturer_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adherence": rows, "count": total})
}
