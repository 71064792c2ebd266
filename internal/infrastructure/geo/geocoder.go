// Package geo переводит адрес или почтовый индекс в координаты.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

const (
	RegionUK = "UK"
	RegionUS = "US"

	defaultPostcodesURL = "https://api.postcodes.io"
	defaultGoogleURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
)

var ukPostcode = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)

type Config struct {
	GoogleKey    string
	PostcodesURL string
	GoogleURL    string
	NominatimURL string
	UserAgent    string
	// RequestsPerSecond ограничивает исходящие запросы; <= 0 означает 1 rps.
	RequestsPerSecond float64
}

type Geocoder struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func NewGeocoder(cfg Config, client *http.Client) *Geocoder {
	if cfg.PostcodesURL == "" {
		cfg.PostcodesURL = defaultPostcodesURL
	}
	if cfg.GoogleURL == "" {
		cfg.GoogleURL = defaultGoogleURL
	}
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = defaultNominatimURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "WheelItIn/1.0"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Geocoder{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// IsUKPostcode проверяет формат британского индекса.
func IsUKPostcode(input string) bool {
	return ukPostcode.MatchString(strings.TrimSpace(input))
}

// Resolve: для региона UK индекс ищется в postcodes.io, остальное - через
// Google (если задан ключ) или Nominatim.
func (g *Geocoder) Resolve(ctx context.Context, input, region string) (valueobject.Coordinates, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return valueobject.Coordinates{}, fmt.Errorf("geocoding error: empty location")
	}

	if region == RegionUK && IsUKPostcode(input) {
		coords, err := g.postcode(ctx, input)
		if err == nil {
			return coords, nil
		}
	}

	var (
		coords valueobject.Coordinates
		err    error
	)
	if g.cfg.GoogleKey != "" {
		coords, err = g.google(ctx, input)
	} else {
		coords, err = g.nominatim(ctx, input, region)
	}
	if err != nil {
		return valueobject.Coordinates{}, fmt.Errorf("geocoding error for %s: %w", input, err)
	}
	return coords, nil
}

type postcodeResponse struct {
	Status int `json:"status"`
	Result struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"result"`
}

func (g *Geocoder) postcode(ctx context.Context, input string) (valueobject.Coordinates, error) {
	endpoint := strings.TrimRight(g.cfg.PostcodesURL, "/") + "/postcodes/" + url.PathEscape(input)

	var payload postcodeResponse
	if err := g.getJSON(ctx, endpoint, &payload); err != nil {
		return valueobject.Coordinates{}, err
	}
	if payload.Status != http.StatusOK {
		return valueobject.Coordinates{}, fmt.Errorf("postcode lookup status %d", payload.Status)
	}
	return valueobject.Coordinates{Latitude: payload.Result.Latitude, Longitude: payload.Result.Longitude}, nil
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *Geocoder) google(ctx context.Context, input string) (valueobject.Coordinates, error) {
	params := url.Values{}
	params.Set("address", input)
	params.Set("key", g.cfg.GoogleKey)

	var payload googleResponse
	if err := g.getJSON(ctx, g.cfg.GoogleURL+"?"+params.Encode(), &payload); err != nil {
		return valueobject.Coordinates{}, err
	}
	if payload.Status != "OK" || len(payload.Results) == 0 {
		return valueobject.Coordinates{}, fmt.Errorf("geocoding failed: %s", payload.Status)
	}
	loc := payload.Results[0].Geometry.Location
	return valueobject.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *Geocoder) nominatim(ctx context.Context, input, region string) (valueobject.Coordinates, error) {
	params := url.Values{}
	params.Set("q", input)
	params.Set("format", "json")
	params.Set("limit", "1")
	switch region {
	case RegionUK:
		params.Set("countrycodes", "gb")
	case RegionUS:
		params.Set("countrycodes", "us")
	}

	var results []nominatimResult
	if err := g.getJSON(ctx, g.cfg.NominatimURL+"?"+params.Encode(), &results); err != nil {
		return valueobject.Coordinates{}, err
	}
	if len(results) == 0 {
		return valueobject.Coordinates{}, fmt.Errorf("geocoding failed: no results")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return valueobject.Coordinates{}, fmt.Errorf("geocoding failed: bad latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return valueobject.Coordinates{}, fmt.Errorf("geocoding failed: bad longitude: %w", err)
	}
	return valueobject.Coordinates{Latitude: lat, Longitude: lon}, nil
}

func (g *Geocoder) getJSON(ctx context.Context, endpoint string, dst any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode upstream payload: %w", err)
	}
	return nil
}
