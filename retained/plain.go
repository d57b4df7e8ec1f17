package retained

import (
	"fmt"
	"reflect"
)

// checkPlain returns an error if t can't be checksummed as raw bytes
func checkPlain(t reflect.Type) error {
	if t.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyRecord, t)
	}
	if bad := findNotPlain(t); bad != nil {
		return fmt.Errorf("%w: %s contains %s", ErrNotPlain, t, bad)
	}
	return nil
}

func findNotPlain(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return findNotPlain(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if bad := findNotPlain(t.Field(i).Type); bad != nil {
				return bad
			}
		}
		return nil
	}
	// pointers, uintptr, strings, slices, maps, interfaces, channels, funcs
	return t
}
