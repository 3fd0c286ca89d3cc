package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// farFuture is the open upper bound of a date range query.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// RangeQuery is shared by the event and location history listings.
type RangeQuery struct {
	From   time.Time `json:"from" zog:"from"`
	To     time.Time `json:"to" zog:"to"`
	Type   string    `json:"type" zog:"type"`
	Recent int       `json:"recent" zog:"recent"`
}

func (q RangeQuery) bounds() (time.Time, time.Time) {
	to := q.To
	if to.IsZero() {
		to = farFuture
	}
	return q.From, to
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id " + strconv.Quote(c.Param("id"))})
		return 0, false
	}
	return uint(id), true
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type LimiterRequest struct {
	Rate  float64 `json:"rate" zog:"rate"`
	Burst int     `json:"burst" zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"Rate":  z.Float64().Required(),
	"Burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	clientID := c.Param("client_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(clientID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

var pushTypeSchema = z.String().Required().OneOf([]string{
	string(models.PushTypeSosAlert),
	string(models.PushTypeCommunityAlert),
	string(models.PushTypeSafetyCheck),
	string(models.PushTypeTestNotification),
})

// PostPush accepts a push message relayed by the shell, renders it and
// returns what was shown.
func (rs *RestfulServer) PostPush(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var msg models.PushMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pushType := string(msg.Type)
	if issues := pushTypeSchema.Validate(&pushType); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": issues})
		return
	}

	n, err := rs.Push.Handle(c.Request.Context(), msg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (rs *RestfulServer) PostRetention(c *gin.Context) {
	result, err := rs.Retention.Prune(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	common.GetCategoryLogger(common.LoggerNameRestfulServer, common.LoggerCategorySosRetention).
		Info("Manual retention pass", zap.Int64("events_deleted", result.EventsDeleted))
	c.JSON(http.StatusOK, result)
}
