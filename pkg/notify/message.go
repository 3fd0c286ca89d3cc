package notify

import (
	"fmt"
	"strings"

	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

const AlertTitle = "🚨 EMERGENCY ALERT 🚨"

// AlertMessage is the SMS body sent to contacts when an SOS is raised.
func AlertMessage(userName string, loc models.LocationSnapshot) string {
	if strings.TrimSpace(userName) == "" {
		userName = "Someone"
	}
	return fmt.Sprintf("%s\n\n%s needs help at %s\n\nLocation: %s\nCoordinates: %s\n\nPlease respond immediately or contact emergency services.",
		AlertTitle,
		userName,
		location.AddressOrUnknown(loc.Address),
		location.MapsURL(loc.Latitude, loc.Longitude),
		location.Coordinates(loc.Latitude, loc.Longitude),
	)
}

func AlertNotification(userName string, loc models.LocationSnapshot) models.Notification {
	return models.Notification{
		Title: AlertTitle,
		Body:  AlertMessage(userName, loc),
		Data: map[string]string{
			"type":     string(models.PushTypeSosAlert),
			"maps_url": location.MapsURL(loc.Latitude, loc.Longitude),
		},
	}
}
