// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

func init() {
	// 默认输出，Init 之前的日志也不会丢失
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 初始化全局日志器，附带服务名字段。
// 所有服务在 bootstrap 阶段调用一次即可。
func Init(serviceName string) {
	base = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个与追踪上下文关联的日志器。
// 如果 ctx 中存在有效的 Span，日志会自动携带 trace_id / span_id，
// 便于在日志系统中与 Jaeger 链路相互跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		l := base
		return &l
	}
	l := base.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}

// L 返回不带上下文的全局日志器，用于启动阶段等没有 ctx 的场景。
func L() *zerolog.Logger {
	l := base
	return &l
}
