// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Show the status of server",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/users/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a new user",
                "parameters": [{"description": "User registration details", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/users/login": {
            "post": {
                "description": "Sets the accessToken and refreshToken cookies and also returns both tokens.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Log in with email or username",
                "parameters": [{"description": "Login credentials", "name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/users/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Log out",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/users/refreshToken": {
            "post": {
                "description": "Exchanges the current refresh token (cookie or body) for a new access and refresh token. Each refresh token can be used once.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Rotate the token pair",
                "parameters": [{"description": "Refresh token when not sent as a cookie", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/model.RefreshRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update name or email",
                "parameters": [{"description": "Fields to change", "name": "account", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.UpdateAccountRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/users/change-password": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Change password",
                "parameters": [{"description": "Old and new password", "name": "passwords", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.ChangePasswordRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/users/me/avatar": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Request an avatar upload URL",
                "description": "Returns a presigned PUT URL and its object key. The avatar is not changed until the upload is confirmed.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Confirm an avatar upload",
                "parameters": [{"description": "Object key returned with the upload URL", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.ConfirmAvatarRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/users/{userId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "security": [{"BearerAuth": []}],
                "summary": "Public profile of a user",
                "description": "The viewer is identified only by an Authorization bearer token; cookies are ignored.",
                "parameters": [{"type": "string", "description": "User ID", "name": "userId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/projects": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "List the caller's projects",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Create a project",
                "parameters": [{"description": "Project", "name": "project", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.CreateProjectRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/projects/{projectId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Get a project",
                "parameters": [{"type": "string", "description": "Project ID", "name": "projectId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Update a project",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "projectId", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "project", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.UpdateProjectRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Delete a project",
                "parameters": [{"type": "string", "description": "Project ID", "name": "projectId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/task": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "List tasks created by or assigned to the caller",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "priority", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "projectId", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "sortBy", "in": "query"},
                    {"type": "string", "name": "sortOrder", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Create a task",
                "parameters": [{"description": "Task", "name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.CreateTaskRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/task/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Task statistics for the caller",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/task/project/{projectId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Tasks of one of the caller's projects",
                "parameters": [{"type": "string", "name": "projectId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/task/{taskId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Get a task",
                "parameters": [{"type": "string", "name": "taskId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Update a task",
                "parameters": [
                    {"type": "string", "name": "taskId", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.UpdateTaskRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Delete a task",
                "parameters": [{"type": "string", "name": "taskId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        },
        "/api/task/{taskId}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Change a task's status",
                "parameters": [
                    {"type": "string", "name": "taskId", "in": "path", "required": true},
                    {"description": "New status", "name": "status", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.UpdateTaskStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/common.APIResponse"}}}
            }
        }
    },
    "definitions": {
        "common.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "pagination": {}
            }
        },
        "common.AppError": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "model.RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password", "userName"],
            "properties": {
                "name": {"type": "string", "maxLength": 100},
                "email": {"type": "string"},
                "userName": {"type": "string", "maxLength": 50, "minLength": 3},
                "password": {"type": "string", "minLength": 6}
            }
        },
        "model.LoginRequest": {
            "type": "object",
            "required": ["password"],
            "properties": {
                "email": {"type": "string"},
                "userName": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "model.RefreshRequest": {
            "type": "object",
            "properties": {"refreshToken": {"type": "string"}}
        },
        "model.ConfirmAvatarRequest": {
            "type": "object",
            "required": ["key"],
            "properties": {"key": {"type": "string"}}
        },
        "model.UpdateAccountRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}}
        },
        "model.ChangePasswordRequest": {
            "type": "object",
            "required": ["newPassword", "oldPassword"],
            "properties": {"oldPassword": {"type": "string"}, "newPassword": {"type": "string", "minLength": 6}}
        },
        "model.CreateProjectRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "color": {"type": "string"},
                "icon": {"type": "string"},
                "category": {"type": "string"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "isPrivate": {"type": "boolean"},
                "priority": {"type": "string", "enum": ["low", "medium", "high"]},
                "goals": {"type": "array", "items": {"type": "string"}}
            }
        },
        "model.UpdateProjectRequest": {
            "$ref": "#/definitions/model.CreateProjectRequest"
        },
        "model.CreateTaskRequest": {
            "type": "object",
            "required": ["category", "description", "dueDate", "title"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "string", "enum": ["low", "medium", "high"]},
                "status": {"type": "string", "enum": ["pending", "in-progress", "completed"]},
                "dueDate": {"type": "string"},
                "dueTime": {"type": "string"},
                "projectId": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "category": {"type": "string"},
                "assigneeId": {"type": "string"}
            }
        },
        "model.UpdateTaskRequest": {
            "$ref": "#/definitions/model.CreateTaskRequest"
        },
        "model.UpdateTaskStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string", "enum": ["pending", "in-progress", "completed"]}}
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
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Go-Task API",
	Description:      "Task and project management API with rotating refresh tokens.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
