package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeocodeAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Moi Avenue, Nairobi", r.URL.Query().Get("q"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"-1.2833","lon":"36.8219","display_name":"Moi Avenue, Nairobi, Kenya"}]`))
	}))
	defer server.Close()

	t.Setenv("NOMINATIM_BASE_URL", server.URL)

	lat, lng, err := GeocodeAddress("Moi Avenue, Nairobi")
	require.NoError(t, err)
	require.InDelta(t, -1.2833, lat, 0.0001)
	require.InDelta(t, 36.8219, lng, 0.0001)
}

func TestGeocodeAddressNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	t.Setenv("NOMINATIM_BASE_URL", server.URL)

	_, _, err := GeocodeAddress("nowhere at all")
	require.Error(t, err)
}

func TestGeocodeAddressServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	t.Setenv("NOMINATIM_BASE_URL", server.URL)

	_, _, err := GeocodeAddress("Moi Avenue, Nairobi")
	require.Error(t, err)
}
