package trackerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skywatch/internal/models"
)

// msgNoError is the upstream success sentinel. Any other status message is a
// logical failure, even on HTTP 200.
const msgNoError = "no error"

// defaultChunkSize is the provider's identifier limit per request.
const defaultChunkSize = 1000

// authHeader carries the premium tier credential.
const authHeader = "api-auth"

// errAuthRejected marks an HTTP 403 from the premium tier. It is consumed
// inside the client by the one-time tier downgrade and never escapes unless
// the public fallback also fails.
var errAuthRejected = errors.New("authorization rejected")

// UpstreamError is a logical failure reported by the tracking service in an
// otherwise well-formed response.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "upstream error: " + e.Message
}

// Config configures the tracking service client.
type Config struct {
	APIKey     string // blank disables the premium tier
	PremiumURL string
	PublicURL  string
	ChunkSize  int // identifiers per request, defaults to 1000

	HTTPClient  *http.Client
	Credentials *CredentialState
}

// Client executes logical fetch operations against the upstream tracking
// service, preferring the premium tier when a valid credential is configured
// and downgrading to the public tier on a credential rejection.
type Client struct {
	httpClient *http.Client
	apiKey     string
	premiumURL string
	publicURL  string
	chunkSize  int
	creds      *CredentialState
	now        func() time.Time
}

// NewClient creates a tracking service client
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = &CredentialState{}
	}
	return &Client{
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		premiumURL: strings.TrimRight(cfg.PremiumURL, "/"),
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		chunkSize:  chunkSize,
		creds:      creds,
		now:        time.Now,
	}
}

// request describes one logical operation in both tier shapes. The premium
// tier is query-driven and uses presence-only flags (bare keys, no "="); the
// public tier is path-driven.
type request struct {
	publicPath   string
	premiumQuery string
}

// ByHex fetches aircraft by ICAO24 hex address.
func (c *Client) ByHex(ctx context.Context, hexes []string) ([]models.AircraftRecord, error) {
	return c.byIdentifiers(ctx, hexes, "hex", "find_hex")
}

// BySquawk fetches aircraft by transponder code.
func (c *Client) BySquawk(ctx context.Context, squawks []string) ([]models.AircraftRecord, error) {
	return c.byIdentifiers(ctx, squawks, "squawk", "filter_squawk")
}

// ByCallsign fetches aircraft by callsign.
func (c *Client) ByCallsign(ctx context.Context, callsigns []string) ([]models.AircraftRecord, error) {
	return c.byIdentifiers(ctx, callsigns, "callsign", "find_callsign")
}

// ByRegistration fetches aircraft by tail registration.
func (c *Client) ByRegistration(ctx context.Context, registrations []string) ([]models.AircraftRecord, error) {
	return c.byIdentifiers(ctx, registrations, "reg", "find_reg")
}

// ByType fetches aircraft by airframe type code.
func (c *Client) ByType(ctx context.Context, types []string) ([]models.AircraftRecord, error) {
	return c.byIdentifiers(ctx, types, "type", "find_type")
}

// ByCircle fetches aircraft within radiusMeters of a point. The upstream
// service takes the radius in whole nautical miles, minimum 1.
func (c *Client) ByCircle(ctx context.Context, lat, lon, radiusMeters float64) ([]models.AircraftRecord, error) {
	nmi := radiusToNauticalMiles(radiusMeters)
	return c.execute(ctx, request{
		publicPath:   fmt.Sprintf("point/%g/%g/%d", lat, lon, nmi),
		premiumQuery: fmt.Sprintf("circle=%g,%g,%d&jv2", lat, lon, nmi),
	})
}

// Military fetches aircraft flagged as military.
func (c *Client) Military(ctx context.Context) ([]models.AircraftRecord, error) {
	return c.execute(ctx, request{publicPath: "mil", premiumQuery: "mil&jv2"})
}

// LADD fetches aircraft on the FAA limited data display list.
func (c *Client) LADD(ctx context.Context) ([]models.AircraftRecord, error) {
	return c.execute(ctx, request{publicPath: "ladd", premiumQuery: "ladd&jv2"})
}

// PIA fetches aircraft flying under a privacy ICAO address.
func (c *Client) PIA(ctx context.Context) ([]models.AircraftRecord, error) {
	return c.execute(ctx, request{publicPath: "pia", premiumQuery: "pia&jv2"})
}

// byIdentifiers issues one request per chunk of identifiers and flattens the
// results. An empty set returns immediately without any network call.
func (c *Client) byIdentifiers(ctx context.Context, ids []string, pathSegment, queryKey string) ([]models.AircraftRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var all []models.AircraftRecord
	for _, chunk := range chunkStrings(ids, c.chunkSize) {
		joined := strings.Join(chunk, ",")
		records, err := c.execute(ctx, request{
			publicPath:   pathSegment + "/" + url.PathEscape(joined),
			premiumQuery: queryKey + "=" + url.QueryEscape(joined) + "&jv2",
		})
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// execute runs one logical operation on the best available tier. A 403 from
// the premium tier marks the credential invalid process-wide and reissues the
// operation once against the public tier; fallback failures propagate.
func (c *Client) execute(ctx context.Context, req request) ([]models.AircraftRecord, error) {
	if c.usePremium() {
		records, err := c.doPremium(ctx, req)
		if errors.Is(err, errAuthRejected) {
			c.creds.MarkInvalid()
			slog.Warn("Premium credential rejected, downgrading to public tier")
			return c.doPublic(ctx, req)
		}
		return records, err
	}
	return c.doPublic(ctx, req)
}

func (c *Client) usePremium() bool {
	return strings.TrimSpace(c.apiKey) != "" && !c.creds.Invalid()
}

func (c *Client) doPremium(ctx context.Context, req request) ([]models.AircraftRecord, error) {
	// RawQuery is assembled by hand: the premium tier requires presence-only
	// flags to arrive as bare keys without a trailing "=".
	u := c.premiumURL + "/?" + req.premiumQuery
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build premium request: %w", err)
	}
	httpReq.Header.Set(authHeader, c.apiKey)
	return c.do(httpReq, true)
}

func (c *Client) doPublic(ctx context.Context, req request) ([]models.AircraftRecord, error) {
	u := c.publicURL + "/" + req.publicPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build public request: %w", err)
	}
	return c.do(httpReq, false)
}

func (c *Client) do(req *http.Request, premium bool) ([]models.AircraftRecord, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if premium && resp.StatusCode == http.StatusForbidden {
		return nil, errAuthRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}

	var envelope struct {
		Aircraft []models.AircraftRecord `json:"ac"`
		Message  string                  `json:"msg"`
		Now      int64                   `json:"now"`
		Total    int                     `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.Message != msgNoError {
		return nil, &UpstreamError{Message: envelope.Message}
	}

	seenAt := c.now()
	for i := range envelope.Aircraft {
		envelope.Aircraft[i].Callsign = models.NormalizeCallsign(envelope.Aircraft[i].Callsign)
		envelope.Aircraft[i].SeenAt = seenAt
	}
	return envelope.Aircraft, nil
}

// radiusToNauticalMiles converts meters to whole nautical miles, floored at 1.
func radiusToNauticalMiles(meters float64) int {
	nmi := int(math.Round(meters / 1852.0))
	if nmi < 1 {
		nmi = 1
	}
	return nmi
}

// chunkStrings splits values into slices of at most size elements, never
// splitting a single value.
func chunkStrings(values []string, size int) [][]string {
	if len(values) <= size {
		return [][]string{values}
	}
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
