package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"garnet/internal/token"
)

var tokenType = reflect.TypeOf(token.Token{})

// WalkAST serializes a tree into maps and slices for tool consumption. Every
// node becomes a map with a "type" key; token fields collapse to their
// literal and offset.
func WalkAST(node any) any {
	return walkValue(reflect.ValueOf(node))
}

func walkValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		return walkValue(v.Elem())
	case reflect.Slice:
		items := make([]any, v.Len())
		for i := range items {
			items[i] = walkValue(v.Index(i))
		}
		return items
	case reflect.Struct:
		if v.Type() == tokenType {
			tok := v.Interface().(token.Token)
			return map[string]any{"literal": tok.Literal, "pos": tok.Position}
		}
		out := map[string]any{"type": v.Type().Name()}
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			out[lowerFirst(field.Name)] = walkValue(v.Field(i))
		}
		return out
	default:
		return v.Interface()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// RenderASTAsJSON renders WalkAST output as indented JSON.
func RenderASTAsJSON(node Node) (string, error) {
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(WalkAST(node)); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %v", err)
	}
	return buf.String(), nil
}
