package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// LocationRequest is a fix reported by the device shell.
type LocationRequest struct {
	Latitude  float64   `json:"latitude" zog:"latitude"`
	Longitude float64   `json:"longitude" zog:"longitude"`
	Accuracy  float64   `json:"accuracy" zog:"accuracy"`
	Altitude  *float64  `json:"altitude" zog:"altitude"`
	Speed     *float64  `json:"speed" zog:"speed"`
	Bearing   *float64  `json:"bearing" zog:"bearing"`
	Timestamp time.Time `json:"timestamp" zog:"timestamp"`
}

var locationRequestSchema = z.Struct(z.Shape{
	"Latitude":  z.Float64().Required().GTE(-90).LTE(90),
	"Longitude": z.Float64().Required().GTE(-180).LTE(180),
	"Accuracy":  z.Float64().GTE(0),
	"Altitude":  z.Ptr(z.Float64()),
	"Speed":     z.Ptr(z.Float64()),
	"Bearing":   z.Ptr(z.Float64()),
	"Timestamp": z.Time(),
})

type PermissionRequest struct {
	Granted bool `json:"granted" zog:"granted"`
}

var permissionRequestSchema = z.Struct(z.Shape{
	"Granted": z.Bool(),
})

var historyQuerySchema = z.Struct(z.Shape{
	"From":   z.Time(),
	"To":     z.Time(),
	"Recent": z.Int().GTE(0),
})

func (rs *RestfulServer) PostLocation(c *gin.Context) {
	var req LocationRequest
	if err := locationRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	fix := models.LocationSnapshot{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Altitude:  req.Altitude,
		Speed:     req.Speed,
		Bearing:   req.Bearing,
		Timestamp: req.Timestamp,
	}
	if err := rs.Feed.Report(fix); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// PostPermission records the platform permission answer. Revoking it ends
// any running tracking session.
func (rs *RestfulServer) PostPermission(c *gin.Context) {
	var req PermissionRequest
	if err := permissionRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.Feed.SetPermission(req.Granted)
	if !req.Granted {
		rs.Location.StopTracking()
	}
	logger().Info("Location permission changed", zap.Bool("granted", req.Granted))
	c.JSON(http.StatusOK, gin.H{"granted": req.Granted})
}

func (rs *RestfulServer) GetCurrentLocation(c *gin.Context) {
	snapshot, err := rs.Location.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetLocationHistory returns the most recent tracking fixes when recent is
// given, otherwise every fix within [from, to] oldest first.
func (rs *RestfulServer) GetLocationHistory(c *gin.Context) {
	var q RangeQuery
	if err := historyQuerySchema.Parse(zhttp.Request(c.Request), &q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	var snapshots []models.LocationSnapshot
	var err error
	if q.Recent > 0 {
		snapshots, err = rs.Safety.History.RecentTracking(ctx, q.Recent)
	} else {
		from, to := q.bounds()
		snapshots, err = rs.Safety.History.GetByDateRange(ctx, from, to)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []models.LocationSnapshot{}
	}
	c.JSON(http.StatusOK, snapshots)
}

// PostStartTracking starts a session that outlives the request and relays
// every emitted fix to the websocket clients.
func (rs *RestfulServer) PostStartTracking(c *gin.Context) {
	fixes, err := rs.Location.StartTracking(context.WithoutCancel(c.Request.Context()), rs.Tracking)
	if err != nil {
		writeError(c, err)
		return
	}

	go func() {
		for fix := range fixes {
			rs.Hub.Broadcast(KindLocation, fix)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"tracking": true})
}

func (rs *RestfulServer) PostStopTracking(c *gin.Context) {
	rs.Location.StopTracking()
	c.JSON(http.StatusOK, gin.H{"tracking": false})
}
