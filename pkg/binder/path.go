package binder

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
)

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// Path binds fields tagged `path:"name"` using extractor, e.g. chi.URLParam.
// Supported field types are string, integers and encoding.TextUnmarshaler
// implementations such as uuid.UUID.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: nil extractor", ErrFailedToParsePath)
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return ErrInvalidTarget
		}
		rv = rv.Elem()
		rt := rv.Type()

		for i := range rt.NumField() {
			sf := rt.Field(i)
			name := sf.Tag.Get("path")
			if name == "" || name == "-" || !sf.IsExported() {
				continue
			}
			raw := extractor(r, name)
			if raw == "" {
				continue
			}
			if err := setField(rv.Field(i), raw); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFailedToParsePath, name, err)
			}
		}
		return nil
	}
}

func setField(f reflect.Value, raw string) error {
	if f.CanAddr() && f.Addr().Type().Implements(textUnmarshalerType) {
		return f.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetUint(n)
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}
