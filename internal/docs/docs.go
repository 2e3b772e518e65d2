// Package docs holds the OpenAPI 2.0 document for the accounts API. It is
// maintained by hand next to the swag annotations on the handlers and is
// registered with swag so gin-swagger can serve it under /swagger.
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
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Meta"],
                "summary": "Service index",
                "operationId": "index",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.IndexResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Meta"],
                "summary": "Liveness probe",
                "operationId": "health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/accounts": {
            "get": {
                "description": "Returns a page of accounts, optionally filtered by exact name. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "List accounts (paginated)",
                "operationId": "listAccounts",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Exact name filter", "name": "name", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.ListAccountsResponse"},
                        "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}
                    },
                    "304": {"description": "Not Modified"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/errs.Response"}}
                }
            },
            "post": {
                "description": "Creates an account. Supports idempotency via the Idempotency-Key header (same key → same result).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Create an account",
                "operationId": "createAccount",
                "parameters": [
                    {"type": "string", "description": "Idempotency key for safe retries (UUID recommended)", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Account payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AccountRequest"}}
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {"$ref": "#/definitions/handlers.AccountResponse"},
                        "headers": {
                            "Location": {"type": "string", "description": "URL of the new account"},
                            "Idempotency-Replayed": {"type": "string", "description": "true when served from a previous request"}
                        }
                    },
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "409": {"description": "Idempotency key cannot be replayed", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "415": {"description": "Content-Type is not application/json", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/errs.Response"}}
                }
            }
        },
        "/accounts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Read an account",
                "operationId": "getAccount",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Account ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AccountResponse"}},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/errs.Response"}}
                }
            },
            "put": {
                "description": "Replaces every mutable field. Omitting date_joined keeps the stored date; omitting phone_number clears it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Replace an account",
                "operationId": "updateAccount",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Account ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "Account payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AccountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AccountResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "415": {"description": "Content-Type is not application/json", "schema": {"$ref": "#/definitions/errs.Response"}}
                }
            },
            "delete": {
                "description": "Deleting an account that does not exist also returns 204.",
                "tags": ["Accounts"],
                "summary": "Delete an account",
                "operationId": "deleteAccount",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Account ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/errs.Response"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Partially update an account",
                "operationId": "patchAccount",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Account ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PatchAccountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AccountResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/errs.Response"}},
                    "415": {"description": "Content-Type is not application/json", "schema": {"$ref": "#/definitions/errs.Response"}}
                }
            }
        }
    },
    "definitions": {
        "errs.FieldError": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "must be a string"},
                "field": {"type": "string", "example": "name"}
            }
        },
        "errs.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "error": {"type": "string", "example": "Not Found"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/errs.FieldError"}},
                "message": {"type": "string", "example": "account not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "status": {"type": "integer", "example": 404}
            }
        },
        "handlers.AccountRequest": {
            "type": "object",
            "required": ["address", "email", "name"],
            "properties": {
                "address": {"type": "string", "maxLength": 256, "example": "12 St James's Square, London"},
                "date_joined": {"type": "string", "example": "2024-05-01"},
                "email": {"type": "string", "maxLength": 64, "example": "ada@example.com"},
                "name": {"type": "string", "maxLength": 64, "minLength": 1, "example": "Ada Lovelace"},
                "phone_number": {"type": "string", "maxLength": 32, "example": "+44 20 7946 0000"}
            }
        },
        "handlers.PatchAccountRequest": {
            "type": "object",
            "properties": {
                "address": {"type": "string", "maxLength": 256, "minLength": 1},
                "date_joined": {"type": "string"},
                "email": {"type": "string", "maxLength": 64},
                "name": {"type": "string", "maxLength": 64, "minLength": 1},
                "phone_number": {"type": "string", "maxLength": 32}
            }
        },
        "handlers.AccountResponse": {
            "type": "object",
            "properties": {
                "address": {"type": "string", "example": "12 St James's Square, London"},
                "created_at": {"type": "string"},
                "date_joined": {"type": "string", "example": "2024-05-01"},
                "email": {"type": "string", "example": "ada@example.com"},
                "id": {"type": "string", "example": "141add05-4415-4938-b5a1-17e0d3171aff"},
                "name": {"type": "string", "example": "Ada Lovelace"},
                "phone_number": {"type": "string", "example": "+44 20 7946 0000"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handlers.ListAccountsResponse": {
            "type": "object",
            "properties": {
                "accounts": {"type": "array", "items": {"$ref": "#/definitions/handlers.AccountResponse"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.IndexResponse": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Account REST API Service"},
                "url": {"type": "string", "example": "http://localhost:8080/accounts"},
                "version": {"type": "string", "example": "1.0"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "OK"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Account REST API Service",
	Description:      "CRUD API for customer accounts with a uniform JSON error envelope.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
