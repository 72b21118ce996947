package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Lookup("person", true)
	m.Lookup("person", false)
	m.Lookup("person", false)
	m.Built("person", 12)
	m.Propagated("add")
	m.Skipped("remove")
	m.Minted()
	m.ObserveSave(0.002)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("person", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("person", "miss")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.DirectorySize.WithLabelValues("person")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Propagations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dangling.WithLabelValues("remove")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentitiesMinted))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Lookup("person", true)
		m.Built("person", 1)
		m.Propagated("add")
		m.Skipped("add")
		m.Minted()
		m.ObserveSave(1)
	})
}
