// Package docs holds the OpenAPI document served at /openapi.json. It mirrors
// the godoc annotations on the handlers; update both together.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Email and password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.AuthMeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Reissue access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ReissueResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Email, optional nickname and password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/files/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Upload images",
                "parameters": [
                    {"type": "file", "description": "One or more files", "name": "files", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.UploadedFile"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/ping": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PingResponse"}}
                }
            }
        },
        "/posts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts",
                "parameters": [
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (default 10, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PostListResponse"}, "headers": {"Last-Page": {"type": "integer", "description": "Number of pages"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create post",
                "parameters": [
                    {"description": "Post", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.CreatePostRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/posts/user/{userId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List the caller's posts",
                "parameters": [
                    {"type": "string", "description": "User ID (must be the caller)", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PostListResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/posts/{postId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get post",
                "parameters": [
                    {"type": "string", "description": "Post ID", "name": "postId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Post"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["posts"],
                "summary": "Delete post",
                "parameters": [
                    {"type": "string", "description": "Post ID", "name": "postId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Update post",
                "parameters": [
                    {"type": "string", "description": "Post ID", "name": "postId", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.UpdatePostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Post"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.AuthMeResponse": {
            "type": "object",
            "properties": {"nickname": {"type": "string"}, "userId": {"type": "string"}}
        },
        "model.AuthResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/model.AuthSession"}}
        },
        "model.AuthSession": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "info": {"$ref": "#/definitions/model.UserInfo"},
                "refresh_token": {"type": "string"}
            }
        },
        "model.CreatePostRequest": {
            "type": "object",
            "properties": {
                "body": {"type": "string"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/model.Image"}},
                "title": {"type": "string"}
            }
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "model.Image": {
            "type": "object",
            "required": ["filename", "imageUrl"],
            "properties": {"filename": {"type": "string"}, "imageUrl": {"type": "string"}}
        },
        "model.LoginRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "model.PingResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "model.Post": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "body": {"type": "string"},
                "createdAt": {"type": "string"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/model.Image"}},
                "title": {"type": "string"},
                "updatedAt": {"type": "string"},
                "user": {"$ref": "#/definitions/model.PostAuthor"}
            }
        },
        "model.PostAuthor": {
            "type": "object",
            "properties": {"_id": {"type": "string"}, "nickname": {"type": "string"}}
        },
        "model.PostListResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Post"}},
                "totalCount": {"type": "integer"}
            }
        },
        "model.RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "nickname": {"type": "string"}, "password": {"type": "string"}}
        },
        "model.ReissueResponse": {
            "type": "object",
            "properties": {"access_token": {"type": "string"}}
        },
        "model.UpdatePostRequest": {
            "type": "object",
            "properties": {
                "body": {"type": "string"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/model.Image"}},
                "title": {"type": "string"}
            }
        },
        "model.UploadedFile": {
            "type": "object",
            "properties": {"location": {"type": "string"}, "name": {"type": "string"}}
        },
        "model.UserInfo": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "email": {"type": "string"},
                "nickname": {"type": "string"},
                "registeredAt": {"type": "string"},
                "updatedAt": {"type": "string"}
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
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "frontyard blog API",
	Description:      "Posts, image upload and JWT session endpoints.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
