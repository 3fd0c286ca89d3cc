package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimGeocoder resolves addresses through an OpenStreetMap Nominatim
// compatible /reverse endpoint.
type NominatimGeocoder struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewNominatimGeocoder(baseURL string) *NominatimGeocoder {
	return &NominatimGeocoder{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		UserAgent: "sos-safety-service",
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", formatCoordinate(lat))
	q.Set("lon", formatCoordinate(lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocoding failed with status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("invalid reverse geocoding response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("reverse geocoding failed: %s", body.Error)
	}

	locality := body.Address.City
	if locality == "" {
		locality = body.Address.Town
	}
	if locality == "" {
		locality = body.Address.Village
	}
	return FormatAddress(AddressParts{
		Thoroughfare:    body.Address.Road,
		SubThoroughfare: body.Address.HouseNumber,
		Locality:        locality,
		AdminArea:       body.Address.State,
		PostalCode:      body.Address.Postcode,
	}), nil
}

// CachedGeocoder memoizes lookups on coordinates rounded to four decimals,
// roughly eleven metres.
type CachedGeocoder struct {
	next  Geocoder
	cache *cache.Cache
}

func NewCachedGeocoder(next Geocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	address, err := c.next.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, address)
	return address, nil
}
