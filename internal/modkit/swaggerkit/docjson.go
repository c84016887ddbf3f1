package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	docs "swiftconcur/internal/services/api/docs"
)

// docReader is swapped in tests
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }

func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		normalize(spec)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// normalize pins the document to OAS 3.0.3, adds the error schema and
// attaches bearer security to every marked operation
func normalize(spec map[string]any) {
	if _, ok := spec["swagger"]; ok {
		delete(spec, "swagger")
	}
	if v, _ := spec["openapi"].(string); v == "" || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": "/"}}
	}

	comps := child(spec, "components")
	schemas := child(comps, "schemas")
	if _, ok := schemas["ErrorResponse"]; !ok {
		schemas["ErrorResponse"] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status_code": map[string]any{"type": "integer"},
				"status":      map[string]any{"type": "string"},
				"code":        map[string]any{"type": "integer"},
				"error":       map[string]any{"type": "string"},
				"errors": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"field":   map[string]any{"type": "string"},
							"message": map[string]any{"type": "string"},
						},
					},
				},
				"request_id": map[string]any{"type": "string"},
			},
			"required": []any{"status_code", "status"},
		}
	}
	child(comps, "securitySchemes")["bearerAuth"] = map[string]any{
		"type":   "http",
		"scheme": "bearer",
	}

	paths, _ := spec["paths"].(map[string]any)
	for path, node := range paths {
		ops, ok := node.(map[string]any)
		if !ok {
			continue
		}
		for method, opAny := range ops {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			resps := child(op, "responses")
			if _, ok := resps["500"]; !ok {
				resps["500"] = errorRef("Internal Server Error")
			}
			if isSecure(path, method) {
				op["security"] = []any{map[string]any{"bearerAuth": []any{}}}
				if _, ok := resps["401"]; !ok {
					resps["401"] = errorRef("Unauthorized")
				}
			}
		}
	}
}

func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

func errorRef(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
			},
		},
	}
}
