package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewIsolatedRegistries(t *testing.T) {
	m1 := New()
	m2 := New()

	m1.PacketsRead.WithLabelValues("video").Inc()
	m1.DriftCorrections.Inc()

	require.Equal(t, float64(1), testutil.ToFloat64(m1.PacketsRead.WithLabelValues("video")))
	require.Equal(t, float64(0), testutil.ToFloat64(m2.PacketsRead.WithLabelValues("video")))
	require.Equal(t, float64(1), testutil.ToFloat64(m1.DriftCorrections))
}

func TestHandler(t *testing.T) {
	m := New()
	m.FramesPresented.WithLabelValues("audio").Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `player_frames_presented_total{stream="audio"} 3`)
}
