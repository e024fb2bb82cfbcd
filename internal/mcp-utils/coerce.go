// Package mcputils binds MCP tool arguments to typed request structs.
package mcputils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is satisfied by mcp.CallToolRequest.
type ArgumentGetter interface {
	GetArguments() map[string]any
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// Bind decodes request arguments into target using json tags, then checks
// the target's validate tags.
//
// Clients frequently send every argument as a string, so JSON-encoded
// objects, numbers and booleans inside strings are decoded to the target
// field's kind. Whole numbers inside map values (query parameters) are
// converted to int64 so they bind as Cypher integers.
func Bind[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			integerHook,
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(request.GetArguments()); err != nil {
		return err
	}
	return check(target)
}

func check(target any) error {
	err := validate.Struct(target)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		name := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s parameter is required", name))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", name, e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", name, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation '%s'", name, e.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// jsonStringHook decodes a string holding JSON when the target is not a
// string.
func jsonStringHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() == reflect.String || to.Kind() == reflect.Interface {
		return data, nil
	}
	text, ok := data.(string)
	if !ok {
		return data, nil
	}
	raw := strings.TrimSpace(text)
	if raw == "" {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice:
		if !(strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[")) {
			return data, nil
		}
	case reflect.Bool:
		if raw != "true" && raw != "false" {
			return data, nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		// Let mapstructure report the type mismatch.
		return data, nil
	}
	return out, nil
}

// integerHook rewrites whole numbers inside maps decoded into a
// map[string]any as int64.
func integerHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Map || to.Elem().Kind() != reflect.Interface {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Numbers(v)
	}
	return out, nil
}

// Numbers rewrites json.Number values as int64 when integral and float64
// otherwise, recursing into lists and maps. Whole float64 values within the
// exactly representable range become int64 as well, so parameters bind as
// Cypher integers.
func Numbers(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = Numbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = Numbers(item)
		}
		return out
	}
	return v
}
