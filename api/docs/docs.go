// Package docs registers the OpenAPI document served at /docs/.
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
        "/auth": {
            "post": {
                "description": "Signs in a known email. An unknown email is registered (name required), added to the \"user\" group and signed in.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign in or register",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/accountsdk.AuthRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "message, user, tokens", "schema": {"$ref": "#/definitions/accountsdk.AuthResponse"}},
                    "400": {"description": "validation_error, weak_password, invalid_format", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "401": {"description": "invalid_credentials", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "403": {"description": "account_disabled", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "409": {"description": "email_taken", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "500": {"description": "internal_error", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}}
                }
            }
        },
        "/account/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the identity carried by the caller's ID token.",
                "produces": ["application/json"],
                "tags": ["Account"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "id, email, name, groups, tokenUse, authTime, exp", "schema": {"$ref": "#/definitions/accountsdk.MeResponse"}},
                    "401": {"description": "missing, invalid or expired token, or not an ID token", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}}
                }
            }
        },
        "/account/edit": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Users can edit their own name. Admins can edit the name and role of any user via userId, but cannot demote themselves.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Account"],
                "summary": "Edit profile",
                "parameters": [
                    {
                        "description": "Fields to change",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/accountsdk.EditProfileRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "message, user", "schema": {"$ref": "#/definitions/accountsdk.EditProfileResponse"}},
                    "400": {"description": "malformed body or unknown role", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "401": {"description": "missing, invalid or expired token, or not an access token", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "403": {"description": "forbidden", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "404": {"description": "not_found", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "500": {"description": "internal_error", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists every profile, oldest first. Admin only.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/accountsdk.UserProfile"}}},
                    "401": {"description": "unauthorized", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "403": {"description": "forbidden", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}},
                    "500": {"description": "internal_error", "schema": {"$ref": "#/definitions/accountsdk.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Always 200 while the process is serving.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/accountsdk.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "200 when the profile store answers a ping, 503 otherwise.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/accountsdk.HealthResponse"}},
                    "503": {"description": "status, uptime, version, checks - service not ready", "schema": {"$ref": "#/definitions/accountsdk.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "accountsdk.AuthRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "user@example.com"},
                "password": {"type": "string", "example": "Secret123!"},
                "name": {"type": "string", "example": "John Doe"}
            }
        },
        "accountsdk.Tokens": {
            "type": "object",
            "properties": {
                "AccessToken": {"type": "string"},
                "IdToken": {"type": "string"},
                "RefreshToken": {"type": "string"},
                "ExpiresIn": {"type": "integer", "example": 3600}
            }
        },
        "accountsdk.AuthResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Login successful"},
                "user": {"$ref": "#/definitions/accountsdk.UserProfile"},
                "tokens": {"$ref": "#/definitions/accountsdk.Tokens"}
            }
        },
        "accountsdk.UserProfile": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "7d3c1e0a-5b7f-4c1e-9a59-2f4bb0d1c001"},
                "email": {"type": "string", "example": "user@example.com"},
                "name": {"type": "string", "example": "John Doe"},
                "role": {"type": "string", "enum": ["user", "admin"], "example": "user"},
                "isOnboarded": {"type": "boolean"}
            }
        },
        "accountsdk.MeResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string", "example": "user@example.com"},
                "name": {"type": "string", "example": "John Doe"},
                "groups": {"type": "array", "items": {"type": "string"}, "example": ["user"]},
                "tokenUse": {"type": "string", "example": "id"},
                "authTime": {"type": "integer", "example": 1735689600},
                "exp": {"type": "integer", "example": 1735693200}
            }
        },
        "accountsdk.EditProfileRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string", "description": "Target user id, admin only"},
                "name": {"type": "string", "example": "Jane Doe"},
                "role": {"type": "string", "enum": ["user", "admin"], "example": "user"}
            }
        },
        "accountsdk.EditProfileResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Profile updated successfully"},
                "user": {"$ref": "#/definitions/accountsdk.UserProfile"}
            }
        },
        "accountsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "forbidden"},
                "message": {"type": "string", "example": "You can only edit your own profile"}
            }
        },
        "accountsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"}
            }
        },
        "accountsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "uptime": {"type": "string", "example": "1h2m3s"},
                "version": {"type": "string", "example": "dev"},
                "checks": {"$ref": "#/definitions/accountsdk.HealthChecks"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Cognito token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Caveo Account API",
	Description:      "Sign in or register against the Cognito user pool and manage the local profile mirror.\n\nBearer tokens are Cognito ID or access tokens (RS256), verified against the pool JWKS.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
