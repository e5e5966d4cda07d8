package reconciler

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/wanderlens/arsync/internal/reconciler"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
