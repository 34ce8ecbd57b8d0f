// Package docs registers the OpenAPI document served under /swagger/.
//
// The template mirrors the @Summary/@Router annotations on the handlers in
// package http; keep the two in step when a route changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns ok and the server time",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        },
        "/api/status": {
            "get": {
                "description": "Returns the poller, store and sink state",
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Get lister status",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        },
        "/api/poll": {
            "post": {
                "description": "Runs one listing cycle now and returns its result",
                "produces": ["application/json"],
                "tags": ["poll"],
                "summary": "Run a poll cycle",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.PollResponse"}},
                    "409": {"description": "A cycle is already running", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "The cycle failed", "schema": {"$ref": "#/definitions/http.PollResponse"}},
                    "503": {"description": "Poller not running", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "description": "Prometheus exposition of the lister metrics",
                "produces": ["text/plain"],
                "tags": ["metrics"],
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "events.FileEvent": {
            "type": "object",
            "properties": {
                "remote_directory": {"type": "string"},
                "remote_file": {"type": "string"}
            }
        },
        "pipeline.Result": {
            "type": "object",
            "properties": {
                "cycle": {"type": "integer"},
                "remote_dir": {"type": "string"},
                "listed": {"type": "integer"},
                "filtered": {"type": "integer"},
                "accepted": {"type": "integer"},
                "dropped": {"type": "integer"},
                "files": {"type": "array", "items": {"$ref": "#/definitions/events.FileEvent"}},
                "started_at": {"type": "string", "format": "date-time"},
                "duration": {"type": "integer", "description": "nanoseconds"}
            }
        },
        "http.PollResponse": {
            "type": "object",
            "properties": {
                "result": {"$ref": "#/definitions/pipeline.Result"},
                "error": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "sftplister API",
	Description:      "Control and status API of the SFTP directory lister.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
