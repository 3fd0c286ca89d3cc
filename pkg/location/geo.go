package location

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	earthRadiusMeters = 6371000.0
	UnknownLocation   = "Unknown location"
)

// Distance is the great-circle distance in metres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MapsURL links to the coordinates on Google Maps.
func MapsURL(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s", formatCoordinate(lat), formatCoordinate(lon))
}

// Coordinates renders "lat, lon" the way the alert message shows them.
func Coordinates(lat, lon float64) string {
	return formatCoordinate(lat) + ", " + formatCoordinate(lon)
}

func AddressOrUnknown(address *string) string {
	if address == nil || strings.TrimSpace(*address) == "" {
		return UnknownLocation
	}
	return *address
}

func ShareText(address *string, lat, lon float64) string {
	return fmt.Sprintf("My current location: %s\n%s", AddressOrUnknown(address), MapsURL(lat, lon))
}

// AddressParts are the reverse geocoding fields used to build a one-line
// address.
type AddressParts struct {
	Thoroughfare    string
	SubThoroughfare string
	Locality        string
	AdminArea       string
	PostalCode      string
}

// FormatAddress builds "<street> <number>, <city>, <state> <postcode>",
// skipping missing parts. An empty result means no usable address.
func FormatAddress(p AddressParts) string {
	var b strings.Builder
	if p.Thoroughfare != "" {
		b.WriteString(p.Thoroughfare)
		if p.SubThoroughfare != "" {
			b.WriteString(" " + p.SubThoroughfare)
		}
		b.WriteString(", ")
	}
	if p.Locality != "" {
		b.WriteString(p.Locality + ", ")
	}
	if p.AdminArea != "" {
		b.WriteString(p.AdminArea + " ")
	}
	if p.PostalCode != "" {
		b.WriteString(p.PostalCode)
	}
	return strings.TrimSuffix(strings.TrimSpace(b.String()), ",")
}
