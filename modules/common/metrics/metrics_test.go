package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveGenerationSeparatesCodes(t *testing.T) {
	before := testutil.ToFloat64(generationsTotal.WithLabelValues("url", "CONFIGURATION_ERROR"))

	ObserveGeneration("url", "CONFIGURATION_ERROR")
	ObserveGeneration("url", "")

	assert.Equal(t, before+1, testutil.ToFloat64(generationsTotal.WithLabelValues("url", "CONFIGURATION_ERROR")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(generationsTotal.WithLabelValues("url", "ok")), 1.0)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(styleDegradedTotal)
	StyleDegraded()
	assert.Equal(t, before+1, testutil.ToFloat64(styleDegradedTotal))

	imgBefore := testutil.ToFloat64(imagesGeneratedTotal)
	ImagesGenerated(3)
	assert.Equal(t, imgBefore+3, testutil.ToFloat64(imagesGeneratedTotal))

	ObserveStage("synthesis", 2*time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(stageDuration))
}
