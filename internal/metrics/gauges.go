package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StateSources are sampled on every collection. A nil source is not registered.
type StateSources struct {
	// AuditPending returns the number of buffered, not yet chained audit events.
	AuditPending func() int64

	// SecretVersions returns the number of stored secret versions keyed by type and
	// status.
	SecretVersions func(ctx context.Context) ([]SecretVersionCount, error)
}

// SecretVersionCount is one sample of the secret versions gauge.
type SecretVersionCount struct {
	Type   string
	Status string
	Count  int64
}

// RegisterStateGauges registers observable gauges over sources.
func RegisterStateGauges(meterProvider metric.MeterProvider, namespace string, sources StateSources) error {
	meter := meterProvider.Meter(namespace)

	if sources.AuditPending != nil {
		_, err := meter.Int64ObservableGauge(
			fmt.Sprintf("%s_audit_pending_events", namespace),
			metric.WithDescription("Audit events buffered and waiting to be chained"),
			metric.WithUnit("{event}"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				o.Observe(sources.AuditPending())
				return nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to create audit pending gauge: %w", err)
		}
	}

	if sources.SecretVersions != nil {
		_, err := meter.Int64ObservableGauge(
			fmt.Sprintf("%s_secret_versions", namespace),
			metric.WithDescription("Stored secret versions by type and status"),
			metric.WithUnit("{version}"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				counts, err := sources.SecretVersions(ctx)
				if err != nil {
					return err
				}
				for _, c := range counts {
					o.Observe(c.Count, metric.WithAttributes(
						attribute.String("type", c.Type),
						attribute.String("status", c.Status),
					))
				}
				return nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to create secret versions gauge: %w", err)
		}
	}

	return nil
}
