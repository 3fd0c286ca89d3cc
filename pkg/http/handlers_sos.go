package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// TriggerRequest starts an SOS. When both coordinates are given the
// countdown commits at that position instead of asking the provider.
type TriggerRequest struct {
	Type      string   `json:"type" zog:"type"`
	Latitude  *float64 `json:"latitude" zog:"latitude"`
	Longitude *float64 `json:"longitude" zog:"longitude"`
	Accuracy  float64  `json:"accuracy" zog:"accuracy"`
	Address   string   `json:"address" zog:"address"`
}

var triggerRequestSchema = z.Struct(z.Shape{
	"Type": z.String().Required().OneOf(common.Mapper(models.TriggerTypes, func(t models.TriggerType) string {
		return string(t)
	})),
	"Latitude":  z.Ptr(z.Float64()),
	"Longitude": z.Ptr(z.Float64()),
	"Accuracy":  z.Float64(),
	"Address":   z.String(),
})

type ResolveRequest struct {
	Notes string `json:"notes" zog:"notes"`
}

var resolveRequestSchema = z.Struct(z.Shape{
	"Notes": z.String(),
})

func (rs *RestfulServer) PostTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := triggerRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	triggerType := models.TriggerType(req.Type)
	var err error
	if req.Latitude != nil && req.Longitude != nil {
		snapshot := models.LocationSnapshot{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Accuracy:  req.Accuracy,
		}
		if req.Address != "" {
			snapshot.Address = &req.Address
		}
		err = rs.Coordinator.TriggerAt(ctx, triggerType, snapshot)
	} else {
		err = rs.Coordinator.Trigger(ctx, triggerType)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	logger().Info("SOS triggered", zap.String("type", req.Type), zap.String("client", clientID(c)))
	c.JSON(http.StatusAccepted, rs.Coordinator.State())
}

func (rs *RestfulServer) PostCancel(c *gin.Context) {
	if err := rs.Coordinator.Cancel(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rs.Coordinator.State())
}

func (rs *RestfulServer) PostResolve(c *gin.Context) {
	var req ResolveRequest
	if c.Request.ContentLength != 0 {
		if err := resolveRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err})
			return
		}
	}

	if err := rs.Coordinator.Resolve(c.Request.Context(), req.Notes); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rs.Coordinator.State())
}

func (rs *RestfulServer) PostRetry(c *gin.Context) {
	if err := rs.Coordinator.Retry(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, rs.Coordinator.State())
}

func (rs *RestfulServer) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, rs.Coordinator.State())
}

// GetStream upgrades to a websocket that carries state changes, rendered
// push notifications and tracking fixes.
func (rs *RestfulServer) GetStream(c *gin.Context) {
	initial := Envelope{Kind: KindSosState, Payload: rs.Coordinator.State()}
	if err := rs.Hub.Serve(c.Writer, c.Request, initial); err != nil {
		logger().Warn("Websocket upgrade failed", zap.Error(err))
	}
}
