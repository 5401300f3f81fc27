package recommend

// Fallback composes the stable degraded response returned when resolution
// yields nothing or an upstream dependency is unavailable. The shape never
// varies with the cause: consumers check the fallback flag instead of
// special-casing transport failures.
func Fallback(message string, extra map[string]any) map[string]any {
	payload := map[string]any{
		"items":    []any{},
		"tracks":   []any{},
		"message":  message,
		"fallback": true,
	}
	for key, value := range extra {
		payload[key] = value
	}
	return payload
}
