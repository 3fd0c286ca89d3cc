package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

const (
	ChannelSos       = "sos_channel"
	ChannelCommunity = "community_channel"

	CategoryAlarm = "alarm"
)

var sosVibration = []int64{0, 1000, 500, 1000}

// Renderer shows a local notification to the user.
type Renderer interface {
	Render(ctx context.Context, n models.LocalNotification) error
}

// PushHandler turns inbound push messages into local notifications.
type PushHandler struct {
	renderer Renderer
}

func NewPushHandler(renderer Renderer) *PushHandler {
	return &PushHandler{renderer: renderer}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// RenderPush maps a push message to what the UI shows. Unknown types are
// rejected.
func RenderPush(msg models.PushMessage) (models.LocalNotification, error) {
	data := map[string]string{"type": string(msg.Type)}
	for k, v := range msg.Data {
		data[k] = v
	}

	switch msg.Type {
	case models.PushTypeSosAlert:
		return models.LocalNotification{
			Channel:  ChannelSos,
			Title:    "🚨 Emergency Alert",
			Body:     firstNonEmpty(msg.Data["message"], msg.Body, "Someone nearby needs help!"),
			Priority: models.PriorityMax,
			Category: CategoryAlarm,
			Vibrate:  sosVibration,
			Data:     data,
		}, nil
	case models.PushTypeCommunityAlert:
		return models.LocalNotification{
			Channel:  ChannelCommunity,
			Title:    "Community Safety Alert",
			Body:     "Safety alert in your area: " + msg.Data["alert_type"],
			Priority: models.PriorityHigh,
			Data:     data,
		}, nil
	case models.PushTypeSafetyCheck:
		return models.LocalNotification{
			Channel:  ChannelSos,
			Title:    "Safety Check",
			Body:     firstNonEmpty(msg.Data["from_user"], "Someone") + " is checking on your safety",
			Priority: models.PriorityHigh,
			Data:     data,
		}, nil
	case models.PushTypeLocationShare:
		return models.LocalNotification{
			Channel:  ChannelSos,
			Title:    firstNonEmpty(msg.Title, "Location Shared"),
			Body:     firstNonEmpty(msg.Body, "Someone is sharing their location with you"),
			Priority: models.PriorityDefault,
			Data:     data,
		}, nil
	case models.PushTypeTestNotification:
		return models.LocalNotification{
			Channel:  ChannelSos,
			Title:    firstNonEmpty(msg.Title, "Smart SOS Alert"),
			Body:     firstNonEmpty(msg.Body, "Emergency notification received"),
			Priority: models.PriorityHigh,
			Data:     data,
		}, nil
	default:
		return models.LocalNotification{}, fmt.Errorf("unknown push type %q", msg.Type)
	}
}

func (h *PushHandler) Handle(ctx context.Context, msg models.PushMessage) (models.LocalNotification, error) {
	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosPush)

	n, err := RenderPush(msg)
	if err != nil {
		logger.Warn("Dropping push message", zap.Error(err))
		return n, err
	}
	if err := h.renderer.Render(ctx, n); err != nil {
		logger.Error("Failed to render push notification", zap.String("type", string(msg.Type)), zap.Error(err))
		return n, err
	}
	logger.Info("Push notification rendered", zap.String("type", string(msg.Type)), zap.String("priority", string(n.Priority)))
	return n, nil
}

// LogRenderer writes notifications to the log when no UI is attached.
type LogRenderer struct{}

func (LogRenderer) Render(ctx context.Context, n models.LocalNotification) error {
	common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosPush).
		Info("Local notification", zap.String("title", n.Title), zap.String("body", n.Body))
	return nil
}

// LogSender writes outbound alerts to the log instead of an SMS gateway.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, contact models.Contact, n models.Notification) error {
	common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosNotify).
		Info("SMS alert", zap.String("to", contact.PhoneNumber), zap.String("body", n.Body))
	return nil
}
