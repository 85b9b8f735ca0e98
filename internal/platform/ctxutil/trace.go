package ctxutil

import "context"

type traceDataKey struct{}

// TraceData travels with every request. Resource names the draft or session the request acts on
// ("draft:<id>", "session:<id>") so model calls made on its behalf can be correlated in logs.
type TraceData struct {
	TraceID   string
	RequestID string
	Resource  string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty IDs as key/value pairs for a logger call.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var out []interface{}
	for _, kv := range [][2]string{{"trace_id", td.TraceID}, {"request_id", td.RequestID}, {"resource", td.Resource}} {
		if kv[1] != "" {
			out = append(out, kv[0], kv[1])
		}
	}
	return out
}
