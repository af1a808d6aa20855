package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.IndexMutation("set")
	c.IndexMutation("set")
	c.IndexMutation("delete")
	c.CacheRequest(true)
	c.CacheRequest(false)
	c.SyncWrite()
	c.SyncConflict("en")
	c.WatchEvent("change")
	c.IndexSize(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.indexMutations.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.indexMutations.WithLabelValues("delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.syncWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.syncConflicts.WithLabelValues("en")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.watchEvents.WithLabelValues("change")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.indexKeys))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.IndexMutation("set")
		c.CacheRequest(true)
		c.WatchEvent("add")
		c.WatchError()
		c.SyncWrite()
		c.SyncConflict("en")
		c.SyncKeyFailure("en")
		c.ObserveSync(time.Millisecond)
		c.IndexSize(1)
	})
	assert.Nil(t, c.Registry())
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.SyncWrite()
	c.ObserveSync(3 * time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "i18nsync_sync_writes_total 1"))
	assert.True(t, strings.Contains(body, "i18nsync_sync_duration_seconds_count 1"))
}
