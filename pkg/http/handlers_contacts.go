package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"liyu1981.xyz/sos-safety-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

type ContactRequest struct {
	Name               string `json:"name" zog:"name"`
	PhoneNumber        string `json:"phone_number" zog:"phone_number"`
	IsPrimary          bool   `json:"is_primary" zog:"is_primary"`
	IsEmergencyService bool   `json:"is_emergency_service" zog:"is_emergency_service"`
}

var contactRequestSchema = z.Struct(z.Shape{
	"Name":               z.String().Min(1).Required(),
	"PhoneNumber":        z.String().Min(1).Required(),
	"IsPrimary":          z.Bool(),
	"IsEmergencyService": z.Bool(),
})

func (rs *RestfulServer) GetContacts(c *gin.Context) {
	contacts, err := rs.Safety.Contact.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

func (rs *RestfulServer) PostContact(c *gin.Context) {
	var req ContactRequest
	if err := contactRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	contact := models.Contact{
		Name:               req.Name,
		PhoneNumber:        req.PhoneNumber,
		IsPrimary:          req.IsPrimary,
		IsEmergencyService: req.IsEmergencyService,
	}
	if err := rs.Safety.Contact.Insert(c.Request.Context(), &contact); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (rs *RestfulServer) PutContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ContactRequest
	if err := contactRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	contact, err := rs.Safety.Contact.GetByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	contact.Name = req.Name
	contact.PhoneNumber = req.PhoneNumber
	contact.IsPrimary = req.IsPrimary
	contact.IsEmergencyService = req.IsEmergencyService
	if err := rs.Safety.Contact.Update(ctx, contact); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (rs *RestfulServer) DeleteContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := rs.Safety.Contact.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) PostPrimaryContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := rs.Safety.Contact.SetPrimary(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
