package runtime

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for veil applications.
const defaultTracerName = "veil"

// startRenderSpan opens a span for one render pass. The returned end
// function records the outcome.
func (a *App) startRenderSpan(inst *Instance, first bool) func(error) {
	if a.tracer == nil {
		return func(error) {}
	}

	_, span := a.tracer.Start(context.Background(), "veil.render",
		trace.WithAttributes(
			attribute.String("veil.component", inst.comp.Name),
			attribute.String("veil.instance", inst.id),
			attribute.Bool("veil.first_render", first),
		),
	)

	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// defaultTracer resolves the global tracer provider's tracer.
func defaultTracer() trace.Tracer {
	return otel.Tracer(defaultTracerName)
}
