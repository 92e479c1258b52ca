// Package observability provides structured logging and Prometheus metrics.
//
// # Overview
//
// This package centralizes observability infrastructure for the audit trail
// service: JSON logging over slog and Prometheus metric collection for the
// write, query, and prune paths.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("tenant_id", tenantID).WithError(err).Error("query failed")
//
// Loggers are immutable; WithField, WithFields, and WithError return derived
// loggers and never mutate the receiver.
//
// # Prometheus Metrics
//
// Initialize metrics against a registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.EventsWrittenTotal.WithLabelValues("login", "info").Inc()
//	metrics.QueriesTotal.WithLabelValues("tenant").Inc()
//
// HTTP instrumentation and exposition:
//
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	observability.RegisterMetricsEndpoint(opsMux, registry)
//
// # Request Correlation
//
// Request ids travel on the context and are stamped onto derived loggers:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	observability.FromContext(ctx).Info("handling request")
package observability
