package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

func TestAlertMessage(t *testing.T) {
	loc := models.LocationSnapshot{Latitude: 40.7128, Longitude: -74.0060, Address: common.Ptr("Broadway, New York")}

	expected := "🚨 EMERGENCY ALERT 🚨\n\n" +
		"Alice needs help at Broadway, New York\n\n" +
		"Location: https://maps.google.com/?q=40.7128,-74.006\n" +
		"Coordinates: 40.7128, -74.006\n\n" +
		"Please respond immediately or contact emergency services."
	assert.Equal(t, expected, AlertMessage("Alice", loc))
}

func TestAlertMessage_Fallbacks(t *testing.T) {
	msg := AlertMessage(" ", models.LocationSnapshot{Latitude: 1.5, Longitude: 2.25})
	assert.Contains(t, msg, "Someone needs help at Unknown location")
	assert.Contains(t, msg, "https://maps.google.com/?q=1.5,2.25")
}

func TestAlertNotification(t *testing.T) {
	n := AlertNotification("Alice", models.LocationSnapshot{Latitude: 40.7128, Longitude: -74.0060})
	assert.Equal(t, AlertTitle, n.Title)
	assert.Equal(t, "sos_alert", n.Data["type"])
	assert.Equal(t, "https://maps.google.com/?q=40.7128,-74.006", n.Data["maps_url"])
}
