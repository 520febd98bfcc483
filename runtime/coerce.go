package runtime

import (
	"fmt"

	"github.com/wippyai/bridge-runtime/codec"
	"github.com/wippyai/bridge-runtime/errors"
)

// As coerces a decoded call result to a concrete type. Wire integers
// widen to float64 on request; everything else must match exactly.
// Generated bindings use this to give results their mapped types.
func As[T any](v any) (T, error) {
	var zero T

	if t, ok := v.(T); ok {
		return t, nil
	}

	// *codec.Ref results decode as value refs.
	if ref, ok := v.(codec.Ref); ok {
		if t, ok := any(&ref).(T); ok {
			return t, nil
		}
	}
	if i, ok := v.(int64); ok {
		if t, ok := any(float64(i)).(T); ok {
			return t, nil
		}
	}

	return zero, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
		GoType(fmt.Sprintf("%T", v)).
		Value(v).
		Detail("result is not %T", zero).
		Build()
}

// AsSlice coerces a decoded list, converting each element through As.
func AsSlice[T any](v any) ([]T, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", v)).
			Detail("result is not a list").
			Build()
	}
	out := make([]T, len(items))
	for i, item := range items {
		t, err := As[T](item)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// AsMap coerces a decoded string-keyed map, converting each value
// through As.
func AsMap[V any](v any) (map[string]V, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", v)).
			Detail("result is not a string-keyed map").
			Build()
	}
	out := make(map[string]V, len(m))
	for k, item := range m {
		t, err := As[V](item)
		if err != nil {
			return nil, err
		}
		out[k] = t
	}
	return out, nil
}
