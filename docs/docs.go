// Package docs registers the swagger document served under /swagger/*.
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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "User login",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requestresponse.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.TokensResponse"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "401": {"description": "Invalid email or password", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "403": {"description": "Account disabled", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        },
        "/api/auth/refresh": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requestresponse.RefreshTokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.TokensResponse"}},
                    "401": {"description": "Invalid, revoked or expired refresh token", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "403": {"description": "Account disabled", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Logout",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requestresponse.RefreshTokenRequest"}}],
                "responses": {
                    "204": {"description": "Revoked"},
                    "401": {"description": "Unknown refresh token", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        },
        "/api/auth/logout-all": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Logout from all sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.RevokedResponse"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Current caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.CurrentUserResponse"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            },
            "head": {
                "security": [{"BearerAuth": []}],
                "tags": ["Authentication"],
                "summary": "Current caller",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Authentication required"}
                }
            }
        },
        "/api/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Register a user",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requestresponse.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/requestresponse.RegisterResponse"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "409": {"description": "Email already exists", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        },
        "/api/auth/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "List users",
                "parameters": [
                    {"type": "string", "name": "cursor", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "minimum": 1, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.ListUsersResponse"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        },
        "/api/auth/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Get a user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.UserResponse"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Update a user",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requestresponse.UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requestresponse.UserResponse"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Users"],
                "summary": "Delete a user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/requestresponse.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "requestresponse.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "agent@example.com"},
                "password": {"type": "string", "example": "P@ssw0rd123"}
            }
        },
        "requestresponse.RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "requestresponse.TokensResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string", "example": "Bearer"}
            }
        },
        "requestresponse.CurrentUserResponse": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer", "example": 42},
                "subject": {"type": "string", "example": "agent@example.com"},
                "role": {"type": "string", "example": "AGENT"}
            }
        },
        "requestresponse.RevokedResponse": {
            "type": "object",
            "properties": {
                "revoked": {"type": "integer", "example": 3}
            }
        },
        "requestresponse.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "phone_number": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "AGENT", "CLIENT"]}
            }
        },
        "requestresponse.RegisterResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/requestresponse.UserResponse"},
                "tokens": {"$ref": "#/definitions/requestresponse.TokensResponse"}
            }
        },
        "requestresponse.UpdateUserRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "phone_number": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "role": {"type": "string", "enum": ["ADMIN", "AGENT", "CLIENT"]},
                "is_active": {"type": "boolean"}
            }
        },
        "requestresponse.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "phone_number": {"type": "string"},
                "role": {"type": "string"},
                "is_active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "requestresponse.ListUsersResponse": {
            "type": "object",
            "properties": {
                "users": {"type": "array", "items": {"$ref": "#/definitions/requestresponse.UserResponse"}},
                "next_cursor": {"type": "string"}
            }
        },
        "requestresponse.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "code": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "E-Transfer Auth",
	Description:      "Authentication core of the e-transfer record service",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
