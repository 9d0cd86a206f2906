package logging

import (
	"context"
)

type contextKey string

const (
	TrailIDKey     contextKey = "trail_id"
	CallIDKey      contextKey = "call_id"
	ServiceNameKey contextKey = "service_name"
)

func WithTrailID(ctx context.Context, trailID string) context.Context {
	return context.WithValue(ctx, TrailIDKey, trailID)
}

func WithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, CallIDKey, callID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTrailID(ctx context.Context) string {
	if trailID, ok := ctx.Value(TrailIDKey).(string); ok {
		return trailID
	}
	return ""
}

func GetCallID(ctx context.Context) string {
	if callID, ok := ctx.Value(CallIDKey).(string); ok {
		return callID
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if trailID := GetTrailID(ctx); trailID != "" {
		fields = append(fields, "trail_id", trailID)
	}

	if callID := GetCallID(ctx); callID != "" {
		fields = append(fields, "call_id", callID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
