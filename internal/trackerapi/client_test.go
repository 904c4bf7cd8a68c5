package trackerapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okBody(hexes ...string) string {
	records := make([]string, 0, len(hexes))
	for _, hex := range hexes {
		records = append(records, fmt.Sprintf(`{"hex":%q,"flight":"TEST123 "}`, hex))
	}
	return fmt.Sprintf(`{"ac":[%s],"msg":"no error","now":1700000000,"total":%d}`, strings.Join(records, ","), len(hexes))
}

func TestByHex_EmptySetShortCircuits(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, okBody())
	}))
	defer server.Close()

	client := NewClient(Config{PublicURL: server.URL})

	records, err := client.ByHex(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(0), requests.Load(), "empty input must not issue any request")
}

func TestByHex_Chunking(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		fmt.Fprint(w, okBody("a1b2c3"))
	}))
	defer server.Close()

	client := NewClient(Config{PublicURL: server.URL, ChunkSize: 1000})

	hexes := make([]string, 1500)
	for i := range hexes {
		hexes[i] = fmt.Sprintf("%06x", i)
	}

	records, err := client.ByHex(context.Background(), hexes)
	require.NoError(t, err)

	require.Len(t, requests, 2, "1500 identifiers with chunk size 1000 should take 2 requests")
	assert.Len(t, records, 2, "each chunk's aircraft are flattened into one result")

	// No identifier dropped or duplicated across chunks.
	var sent []string
	for _, path := range requests {
		joined := strings.TrimPrefix(path, "/hex/")
		values := strings.Split(joined, ",")
		assert.LessOrEqual(t, len(values), 1000)
		sent = append(sent, values...)
	}
	require.Len(t, sent, len(hexes))
	for i, hex := range hexes {
		assert.Equal(t, hex, sent[i])
	}
}

func TestExecute_PremiumDowngradeOn403(t *testing.T) {
	var premiumCalls, publicCalls atomic.Int32

	premium := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		premiumCalls.Add(1)
		assert.Equal(t, "secret", r.Header.Get(authHeader))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer premium.Close()

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		publicCalls.Add(1)
		fmt.Fprint(w, okBody("a1b2c3"))
	}))
	defer public.Close()

	creds := &CredentialState{}
	client := NewClient(Config{
		APIKey:      "secret",
		PremiumURL:  premium.URL,
		PublicURL:   public.URL,
		Credentials: creds,
	})

	records, err := client.ByHex(context.Background(), []string{"a1b2c3"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a1b2c3", records[0].Hex)

	assert.Equal(t, int32(1), premiumCalls.Load(), "exactly one premium attempt")
	assert.Equal(t, int32(1), publicCalls.Load(), "exactly one fallback call")
	assert.True(t, creds.Invalid(), "403 must stick the credential-invalid flag")

	// A second call with the same credential skips the premium tier entirely.
	_, err = client.ByHex(context.Background(), []string{"a1b2c3"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), premiumCalls.Load())
	assert.Equal(t, int32(2), publicCalls.Load())
}

func TestExecute_CredentialResetRestoresPremium(t *testing.T) {
	var premiumCalls atomic.Int32
	premium := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		premiumCalls.Add(1)
		fmt.Fprint(w, okBody("a1b2c3"))
	}))
	defer premium.Close()

	creds := &CredentialState{}
	creds.MarkInvalid()

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody("a1b2c3"))
	}))
	defer public.Close()

	client := NewClient(Config{
		APIKey:      "secret",
		PremiumURL:  premium.URL,
		PublicURL:   public.URL,
		Credentials: creds,
	})

	_, err := client.ByHex(context.Background(), []string{"a1b2c3"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), premiumCalls.Load())

	creds.Reset()
	_, err = client.ByHex(context.Background(), []string{"a1b2c3"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), premiumCalls.Load())
}

func TestExecute_BlankKeyUsesPublicTier(t *testing.T) {
	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody("a1b2c3"))
	}))
	defer public.Close()

	client := NewClient(Config{APIKey: "   ", PremiumURL: "http://premium.invalid", PublicURL: public.URL})

	records, err := client.ByHex(context.Background(), []string{"a1b2c3"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDo_UpstreamMessageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ac":[],"msg":"rate limit exceeded","now":1700000000,"total":0}`)
	}))
	defer server.Close()

	client := NewClient(Config{PublicURL: server.URL})

	_, err := client.ByHex(context.Background(), []string{"a1b2c3"})
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "rate limit exceeded", upstreamErr.Message)
}

func TestPremium_PresenceOnlyFlags(t *testing.T) {
	var rawQuery string
	premium := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, okBody("ae1234"))
	}))
	defer premium.Close()

	client := NewClient(Config{APIKey: "secret", PremiumURL: premium.URL, PublicURL: "http://public.invalid"})

	_, err := client.Military(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mil&jv2", rawQuery, "presence-only flags must not carry a trailing =")
}

func TestByCircle_RadiusConversion(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, okBody())
	}))
	defer server.Close()

	client := NewClient(Config{PublicURL: server.URL})

	_, err := client.ByCircle(context.Background(), 51.5, -0.1, 18520) // 10 nmi
	require.NoError(t, err)
	assert.Equal(t, "/point/51.5/-0.1/10", path)
}

func TestRadiusToNauticalMiles(t *testing.T) {
	assert.Equal(t, 1, radiusToNauticalMiles(0), "radius floors at 1 nmi")
	assert.Equal(t, 1, radiusToNauticalMiles(500))
	assert.Equal(t, 1, radiusToNauticalMiles(1852))
	assert.Equal(t, 2, radiusToNauticalMiles(3704))
	assert.Equal(t, 5, radiusToNauticalMiles(9260))
}

func TestChunkStrings(t *testing.T) {
	values := []string{"a", "b", "c", "d", "e"}

	chunks := chunkStrings(values, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"c", "d"}, chunks[1])
	assert.Equal(t, []string{"e"}, chunks[2])

	chunks = chunkStrings(values, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, values, chunks[0])
}

func TestDo_TrimsCallsignPadding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody("a1b2c3"))
	}))
	defer server.Close()

	client := NewClient(Config{PublicURL: server.URL})

	records, err := client.ByHex(context.Background(), []string{"a1b2c3"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TEST123", records[0].Callsign)
	assert.False(t, records[0].SeenAt.IsZero())
}
