package routecache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"skywatch/internal/models"
)

// ProviderRoute is one provider's answer for a callsign. Either endpoint may
// be nil; endpoints may carry only an ICAO code when the provider supplies no
// enrichment.
type ProviderRoute struct {
	Origin      *models.Airport
	Destination *models.Airport
}

// RouteProvider resolves a callsign to a route. A (nil, nil) return means the
// provider does not know the callsign; that is a clean miss, not an error.
// Providers are interchangeable so the resolver can try them in priority
// order without knowing their wire formats.
type RouteProvider interface {
	Name() string
	Route(ctx context.Context, callsign string) (*ProviderRoute, error)
}

// PrimaryProvider queries the structured route service. Its responses carry
// full airport objects (ICAO/IATA codes, name, country); an unknown callsign
// comes back as a bare string in place of the response object.
type PrimaryProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (p *PrimaryProvider) Name() string {
	return "primary"
}

func (p *PrimaryProvider) Route(ctx context.Context, callsign string) (*ProviderRoute, error) {
	u := strings.TrimRight(p.BaseURL, "/") + "/callsign/" + url.PathEscape(callsign)
	body, status, err := get(ctx, p.httpClient(), u)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from primary route provider", status)
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode primary route response: %w", err)
	}

	// An unknown callsign arrives as a plain string, not an object.
	payload := bytes.TrimSpace(envelope.Response)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, nil
	}

	var response struct {
		FlightRoute *struct {
			Origin      *primaryAirport `json:"origin"`
			Destination *primaryAirport `json:"destination"`
		} `json:"flightroute"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("failed to decode primary flight route: %w", err)
	}
	if response.FlightRoute == nil {
		return nil, nil
	}

	return &ProviderRoute{
		Origin:      response.FlightRoute.Origin.toAirport(),
		Destination: response.FlightRoute.Destination.toAirport(),
	}, nil
}

func (p *PrimaryProvider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

type primaryAirport struct {
	ICAOCode    string `json:"icao_code"`
	IATACode    string `json:"iata_code"`
	Name        string `json:"name"`
	CountryName string `json:"country_name"`
}

func (a *primaryAirport) toAirport() *models.Airport {
	if a == nil || strings.TrimSpace(a.ICAOCode) == "" {
		return nil
	}
	return &models.Airport{
		ICAO:    strings.ToUpper(strings.TrimSpace(a.ICAOCode)),
		IATA:    strings.ToUpper(strings.TrimSpace(a.IATACode)),
		Name:    strings.TrimSpace(a.Name),
		Country: strings.TrimSpace(a.CountryName),
	}
}

// SecondaryProvider queries the fallback route service, which answers with a
// single dash-delimited "ORIGIN-DEST" string and no airport metadata.
type SecondaryProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (p *SecondaryProvider) Name() string {
	return "secondary"
}

func (p *SecondaryProvider) Route(ctx context.Context, callsign string) (*ProviderRoute, error) {
	u := strings.TrimRight(p.BaseURL, "/") + "/route/icao/" + url.PathEscape(callsign)
	body, status, err := get(ctx, p.httpClient(), u)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from secondary route provider", status)
	}

	var response struct {
		Route string `json:"route"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode secondary route response: %w", err)
	}

	origin, dest := splitRouteString(response.Route)
	if origin == nil && dest == nil {
		return nil, nil
	}
	return &ProviderRoute{Origin: origin, Destination: dest}, nil
}

func (p *SecondaryProvider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

// splitRouteString parses "ORIGIN-DEST". Only the first two dash-delimited
// segments are used; anything after a second dash is discarded. Blank
// segments mean that endpoint is unknown.
func splitRouteString(route string) (*models.Airport, *models.Airport) {
	segments := strings.Split(route, "-")

	var origin, dest *models.Airport
	if icao := strings.ToUpper(strings.TrimSpace(segments[0])); icao != "" {
		origin = &models.Airport{ICAO: icao}
	}
	if len(segments) > 1 {
		if icao := strings.ToUpper(strings.TrimSpace(segments[1])); icao != "" {
			dest = &models.Airport{ICAO: icao}
		}
	}
	return origin, dest
}

func get(ctx context.Context, client *http.Client, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read route response: %w", err)
	}
	return body, resp.StatusCode, nil
}
