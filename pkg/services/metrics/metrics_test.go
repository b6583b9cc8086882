package metrics

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/nspcc-dev/refheap/pkg/config"
	"github.com/nspcc-dev/refheap/pkg/heap"
	"github.com/nspcc-dev/refheap/pkg/heap/native"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPrometheusService(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Addresses: []string{"localhost:0"}}
	srv := NewPrometheusService(cfg, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.ShutDown)

	s := heap.Initialize(native.NewArena(0))
	s.DecRef(s.CreateLong(1))
	s.Finalize()

	addrs := srv.Addresses()
	require.Len(t, addrs, 1)
	resp, err := http.Get("http://" + addrs[0] + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "refheap_operations_total"))
	require.True(t, strings.Contains(string(body), "refheap_live_objects"))
}

func TestDisabledService(t *testing.T) {
	srv := NewPprofService(config.BasicService{Addresses: []string{"localhost:0"}}, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	srv.ShutDown()
	require.Equal(t, []string{"localhost:0"}, srv.Addresses())

	require.Nil(t, NewPrometheusService(config.BasicService{}, nil))
}
