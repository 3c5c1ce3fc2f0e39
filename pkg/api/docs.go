package api

import "github.com/swaggo/swag"

// docTemplate mirrors the godoc annotations on the handlers. Regenerate
// with `swag init -g pkg/api/server.go` after changing them.
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
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/records": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "List records",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Create a record",
                "parameters": [
                    {"description": "Record fields and attributes", "name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/records/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Get a record",
                "parameters": [{"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RecordResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Delete a record",
                "parameters": [{"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/records/{id}/attributes/{path}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["attributes"],
                "summary": "Get an attribute",
                "parameters": [
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Dotted attribute path", "name": "path", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.AttributeResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["attributes"],
                "summary": "Set an attribute",
                "parameters": [
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Dotted attribute path", "name": "path", "in": "path", "required": true},
                    {"description": "Value", "name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.AttributeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["attributes"],
                "summary": "Unset an attribute",
                "parameters": [
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Dotted attribute path", "name": "path", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/records/{id}/fields": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["attributes"],
                "summary": "List field names",
                "parameters": [
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "List every nested path", "name": "deep", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/records/{id}/expression": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["attributes"],
                "summary": "Show the column expression",
                "parameters": [{"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ExpressionResponse"}}}
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "api.RecordResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fields": {"type": "object"},
                "attributes": {"type": "object"}
            }
        },
        "api.AttributeResponse": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "value": {"type": "object"}
            }
        },
        "api.ExpressionResponse": {
            "type": "object",
            "properties": {
                "sql": {"type": "string"},
                "params": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/api.ParameterBinding"}
                }
            }
        },
        "api.ParameterBinding": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "value": {}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "dynattr REST API",
	Description:      "Records with fixed columns and a MariaDB dynamic column of nested attributes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
