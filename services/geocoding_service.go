package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	config "github.com/kelvinmwangi/fundilink/configs"
)

const defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// GeocodeAddress resolves a free-form address to coordinates using the
// Nominatim search API. Nominatim rejects anonymous clients, so a
// descriptive User-Agent is mandatory.
func GeocodeAddress(address string) (float64, float64, error) {
	baseURL := config.Config("NOMINATIM_BASE_URL")
	if baseURL == "" {
		baseURL = defaultNominatimBaseURL
	}

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", baseURL, url.QueryEscape(address))

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "FundiLink/1.0 (support@fundilink.co.ke)")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding API returned non-200 status: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("failed to decode geocoding response: %v", err)
	}

	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no geocoding result for address: %s", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in geocoding response: %v", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in geocoding response: %v", err)
	}

	return lat, lng, nil
}
