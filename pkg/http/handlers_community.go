package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/remote"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

type CommunityAlertRequest struct {
	AlertType   string  `json:"alert_type" zog:"alert_type"`
	Title       string  `json:"title" zog:"title"`
	Description string  `json:"description" zog:"description"`
	Latitude    float64 `json:"latitude" zog:"latitude"`
	Longitude   float64 `json:"longitude" zog:"longitude"`
	Address     *string `json:"address" zog:"address"`
}

var communityAlertRequestSchema = z.Struct(z.Shape{
	"AlertType":   z.String().OneOf(communityAlertTypeNames()).Required(),
	"Title":       z.String().Min(1).Required(),
	"Description": z.String(),
	"Latitude":    z.Float64().Required().GTE(-90).LTE(90),
	"Longitude":   z.Float64().Required().GTE(-180).LTE(180),
	"Address":     z.Ptr(z.String()),
})

func communityAlertTypeNames() []string {
	names := make([]string, len(models.CommunityAlertTypes))
	for i, t := range models.CommunityAlertTypes {
		names[i] = string(t)
	}
	return names
}

// NearbyQuery is a position and a radius in kilometres.
type NearbyQuery struct {
	Latitude  float64 `json:"lat" zog:"lat"`
	Longitude float64 `json:"lon" zog:"lon"`
	RadiusKm  float64 `json:"radius_km" zog:"radius_km"`
}

var nearbyQuerySchema = z.Struct(z.Shape{
	"Latitude":  z.Float64().Required().GTE(-90).LTE(90),
	"Longitude": z.Float64().Required().GTE(-180).LTE(180),
	"RadiusKm":  z.Float64().GTE(0).Default(remote.DefaultNearbyRadiusKm),
})

type ShareRequest struct {
	SharedWithUserID string     `json:"shared_with_user_id" zog:"shared_with_user_id"`
	Latitude         float64    `json:"latitude" zog:"latitude"`
	Longitude        float64    `json:"longitude" zog:"longitude"`
	Address          *string    `json:"address" zog:"address"`
	TripName         *string    `json:"trip_name" zog:"trip_name"`
	ExpiresAt        *time.Time `json:"expires_at" zog:"expires_at"`
	EstimatedArrival *time.Time `json:"estimated_arrival" zog:"estimated_arrival"`
}

var shareRequestSchema = z.Struct(z.Shape{
	"SharedWithUserID": z.String().Min(1).Required(),
	"Latitude":         z.Float64().Required().GTE(-90).LTE(90),
	"Longitude":        z.Float64().Required().GTE(-180).LTE(180),
	"Address":          z.Ptr(z.String()),
	"TripName":         z.Ptr(z.String()),
	"ExpiresAt":        z.Ptr(z.Time()),
	"EstimatedArrival": z.Ptr(z.Time()),
})

type ProfileRequest struct {
	Name                      string   `json:"name" zog:"name"`
	PhoneNumber               string   `json:"phone_number" zog:"phone_number"`
	Email                     *string  `json:"email" zog:"email"`
	EmergencyContacts         []string `json:"emergency_contacts" zog:"emergency_contacts"`
	AllowCommunityAlerts      bool     `json:"allow_community_alerts" zog:"allow_community_alerts"`
	ShareLocationWithContacts bool     `json:"share_location_with_contacts" zog:"share_location_with_contacts"`
	AutoCallEmergencyServices bool     `json:"auto_call_emergency_services" zog:"auto_call_emergency_services"`
}

var profileRequestSchema = z.Struct(z.Shape{
	"Name":                      z.String().Min(1).Required(),
	"PhoneNumber":               z.String().Min(1).Required(),
	"Email":                     z.Ptr(z.String().Email()),
	"EmergencyContacts":         z.Slice(z.String()),
	"AllowCommunityAlerts":      z.Bool(),
	"ShareLocationWithContacts": z.Bool(),
	"AutoCallEmergencyServices": z.Bool(),
})

type TokenRequest struct {
	Token string `json:"token" zog:"token"`
}

var tokenRequestSchema = z.Struct(z.Shape{
	"Token": z.String().Min(1).Required(),
})

type InvitationRequest struct {
	InviteePhone string `json:"invitee_phone" zog:"invitee_phone"`
}

var invitationRequestSchema = z.Struct(z.Shape{
	"InviteePhone": z.String().Min(1).Required(),
})

func (rs *RestfulServer) PostCommunityAlert(c *gin.Context) {
	var req CommunityAlertRequest
	if err := communityAlertRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	alert := models.CommunityAlert{
		AlertType:   models.CommunityAlertType(req.AlertType),
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
	}
	id, err := rs.Community.Create(c.Request.Context(), &alert)
	if err != nil {
		writeError(c, err)
		return
	}
	alert.ID = id
	alert.UserID = rs.UserID
	alert.ReportedBy = []string{}
	c.JSON(http.StatusCreated, alert)
}

func (rs *RestfulServer) GetNearbyAlerts(c *gin.Context) {
	var q NearbyQuery
	if err := nearbyQuerySchema.Parse(zhttp.Request(c.Request), &q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	alerts, err := rs.Community.Nearby(c.Request.Context(), q.Latitude, q.Longitude, q.RadiusKm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (rs *RestfulServer) PostResolveAlert(c *gin.Context) {
	if err := rs.Community.Resolve(c.Request.Context(), c.Param("alert_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

func (rs *RestfulServer) PostShare(c *gin.Context) {
	var req ShareRequest
	if err := shareRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	share := models.LocationShare{
		SharedWithUserID: req.SharedWithUserID,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Address:          req.Address,
		TripName:         req.TripName,
		ExpiresAt:        req.ExpiresAt,
		EstimatedArrival: req.EstimatedArrival,
	}
	id, err := rs.Shares.Share(c.Request.Context(), &share)
	if err != nil {
		writeError(c, err)
		return
	}
	share.ID = id
	share.UserID = rs.UserID
	share.IsActive = true
	c.JSON(http.StatusCreated, share)
}

// GetSharedWithMe lists the active shares other users send to this user.
func (rs *RestfulServer) GetSharedWithMe(c *gin.Context) {
	shares, err := rs.Shares.Shared(c.Request.Context(), rs.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shares)
}

func (rs *RestfulServer) DeleteShare(c *gin.Context) {
	if err := rs.Shares.Stop(c.Request.Context(), c.Param("share_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) GetProfile(c *gin.Context) {
	user, err := rs.Users.GetUser(c.Request.Context(), rs.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PutProfile replaces the user's profile. The push token is kept.
func (rs *RestfulServer) PutProfile(c *gin.Context) {
	var req ProfileRequest
	if err := profileRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	user := remote.NewUserProfile(req.Name, req.PhoneNumber)
	user.Email = req.Email
	if req.EmergencyContacts != nil {
		user.EmergencyContacts = req.EmergencyContacts
	}
	user.AllowCommunityAlerts = req.AllowCommunityAlerts
	user.ShareLocationWithContacts = req.ShareLocationWithContacts
	user.AutoCallEmergencyServices = req.AutoCallEmergencyServices
	if existing, err := rs.Users.GetUser(ctx, rs.UserID); err == nil {
		user.FcmToken = existing.FcmToken
	}

	if err := rs.Users.UpdateUser(ctx, rs.UserID, user); err != nil {
		writeError(c, err)
		return
	}
	saved, err := rs.Users.GetUser(ctx, rs.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (rs *RestfulServer) PutFcmToken(c *gin.Context) {
	var req TokenRequest
	if err := tokenRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	if err := rs.Users.UpdateFcmToken(c.Request.Context(), rs.UserID, req.Token); err != nil {
		writeError(c, err)
		return
	}
	logger().Info("Push token updated", zap.String("user_id", rs.UserID))
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) PostInvitation(c *gin.Context) {
	var req InvitationRequest
	if err := invitationRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	invitation := models.Invitation{InvitedBy: rs.UserID, InviteePhone: req.InviteePhone}
	if _, err := rs.Users.CreateInvitation(c.Request.Context(), &invitation); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invitation)
}
