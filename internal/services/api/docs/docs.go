// Package docs holds the OpenAPI document served by swaggerkit.
// Regenerate with: swag init -v3.1 -g cmd/swiftconcur-api/main.go -o internal/services/api/docs --instanceName api
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/api/v1/reports": {
            "post": {
                "tags": ["ingest"],
                "summary": "Upload a warning report",
                "requestBody": {
                    "content": {
                        "multipart/form-data": {
                            "schema": {
                                "type": "object",
                                "properties": {"warnings.json": {"type": "string", "format": "binary"}},
                                "required": ["warnings.json"]
                            }
                        }
                    }
                },
                "responses": {
                    "202": {"description": "Accepted", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.Accepted"}}}},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"},
                    "413": {"description": "Payload Too Large"},
                    "429": {"description": "Too Many Requests"}
                }
            }
        },
        "/api/v1/runs": {
            "get": {
                "tags": ["ingest"],
                "summary": "List recent runs",
                "parameters": [{"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1, "maximum": 100}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/runs/{runID}": {
            "get": {
                "tags": ["ingest"],
                "summary": "Get a run",
                "parameters": [{"name": "runID", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/runs/{runID}/warnings": {
            "get": {
                "tags": ["ingest"],
                "summary": "List a run's warnings",
                "parameters": [{"name": "runID", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/limits": {
            "get": {
                "tags": ["access"],
                "summary": "Current plan limits",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/repos/{repoID}/live": {
            "get": {
                "tags": ["live"],
                "summary": "Websocket stream of repository activity",
                "parameters": [{"name": "repoID", "in": "path", "required": true, "schema": {"type": "string"}}],
                "responses": {"101": {"description": "Switching Protocols"}, "403": {"description": "Forbidden"}}
            }
        },
        "/internal/repos/{repoID}/notify": {
            "post": {
                "tags": ["internal"],
                "summary": "Deliver an event to a repository's subscribers",
                "parameters": [
                    {"name": "repoID", "in": "path", "required": true, "schema": {"type": "string"}},
                    {"name": "X-Internal-Token", "in": "header", "required": true, "schema": {"type": "string"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/internal/repos/{repoID}/activity": {
            "get": {
                "tags": ["internal"],
                "summary": "Recent activity for a repository",
                "parameters": [
                    {"name": "repoID", "in": "path", "required": true, "schema": {"type": "string"}},
                    {"name": "limit", "in": "query", "schema": {"type": "integer", "maximum": 50}},
                    {"name": "X-Internal-Token", "in": "header", "required": true, "schema": {"type": "string"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/meta/health": {"get": {"tags": ["Meta"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/meta/ready": {"get": {"tags": ["Meta"], "summary": "Readiness probe with dependency checks", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/api/v1/meta/version": {"get": {"tags": ["Meta"], "summary": "Build and version info", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/meta/service": {"get": {"tags": ["Meta"], "summary": "Service info and uptime", "responses": {"200": {"description": "OK"}}}}
    },
    "components": {
        "schemas": {
            "domain.Accepted": {
                "type": "object",
                "properties": {
                    "id": {"type": "string", "example": "5b1c3a52-7e8f-4f0e-9a43-7c2d6f1a9b10"},
                    "status": {"type": "string", "example": "queued"},
                    "warnings_count": {"type": "integer", "example": 10},
                    "processing_time_ms": {"type": "integer", "example": 12}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Title:            "SwiftConcur API",
	Description:      "Ingests Swift concurrency warning reports from CI and streams repository activity",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
