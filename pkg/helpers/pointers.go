package helpers

// PtrOf creates a pointer to any value type.
//
// Example:
//
//	cfg.Temperature = helpers.PtrOf(0.0) // *float64
func PtrOf[T any](t T) *T { return &t }
