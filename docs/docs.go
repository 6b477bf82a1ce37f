// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
        "/v1/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Get the caller's balance and profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Update display name or photo",
                "parameters": [{"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateProfileRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/me/ads": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "List the caller's ads with counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.ownedAdResponse"}}}
                }
            }
        },
        "/v1/me/balance/stream": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "tags": ["me"],
                "summary": "Stream balance changes",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/feed/next": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["feed"],
                "summary": "Get the next card for the caller",
                "parameters": [{"type": "string", "description": "Language code (defaults to Accept-Language, then ja)", "name": "lang", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.cardResponse"}},
                    "204": {"description": "No card available"},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/quizzes/draft": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["quizzes"],
                "summary": "Draft a quiz from free text",
                "parameters": [{"description": "Ad text", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.draftRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.draftResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ads": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["ads"],
                "summary": "Publish an ad with its quiz",
                "parameters": [
                    {"description": "Ad (JSON requests)", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handler.publishRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.publishResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ads/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["ads"],
                "summary": "Delete an owned ad",
                "parameters": [{"type": "string", "description": "Ad id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ads/{id}/active": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["ads"],
                "summary": "Pause or resume an owned ad",
                "parameters": [
                    {"type": "string", "description": "Ad id", "name": "id", "in": "path", "required": true},
                    {"description": "Desired flag", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.setActiveRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ads/{id}/answer": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ads"],
                "summary": "Answer a card's quiz",
                "parameters": [
                    {"type": "string", "description": "Ad id", "name": "id", "in": "path", "required": true},
                    {"description": "Selected option", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.answerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.resolutionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ads/{id}/skip": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["ads"],
                "summary": "Skip a card",
                "parameters": [{"type": "string", "description": "Ad id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.resolutionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ads/{id}/click": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["ads"],
                "summary": "Record a click on a card's link",
                "parameters": [{"type": "string", "description": "Ad id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handler.clickResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "handler.updateProfileRequest": {"type": "object", "properties": {"display_name": {"type": "string"}, "photo_url": {"type": "string"}}},
        "handler.userResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "email": {"type": "string"}, "display_name": {"type": "string"},
                "photo_url": {"type": "string"}, "credits": {"type": "integer"}, "plan": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handler.cardQuiz": {"type": "object", "properties": {"question": {"type": "string"}, "options": {"type": "array", "items": {"type": "string"}}}},
        "handler.cardResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "author_name": {"type": "string"}, "author_icon": {"type": "string"},
                "description": {"type": "string"}, "image_url": {"type": "string"}, "link_url": {"type": "string"},
                "language": {"type": "string"}, "quiz": {"$ref": "#/definitions/handler.cardQuiz"}, "expires_at": {"type": "string"}
            }
        },
        "handler.ownedQuiz": {"type": "object", "properties": {"question": {"type": "string"}, "options": {"type": "array", "items": {"type": "string"}}, "answer_index": {"type": "integer"}}},
        "handler.countersResponse": {"type": "object", "properties": {"impressions": {"type": "integer"}, "clicks": {"type": "integer"}, "attempts": {"type": "integer"}, "correct_answers": {"type": "integer"}}},
        "handler.ownedAdResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "description": {"type": "string"}, "image_url": {"type": "string"},
                "link_url": {"type": "string"}, "language": {"type": "string"}, "plan": {"type": "string"},
                "quiz": {"$ref": "#/definitions/handler.ownedQuiz"},
                "state": {"type": "string", "enum": ["active", "paused", "expired"]},
                "is_active": {"type": "boolean"}, "counters": {"$ref": "#/definitions/handler.countersResponse"},
                "success_rate": {"type": "integer"}, "created_at": {"type": "string"}, "expires_at": {"type": "string"}
            }
        },
        "handler.quizRequest": {
            "type": "object",
            "required": ["question", "options", "answer_index"],
            "properties": {"question": {"type": "string"}, "options": {"type": "array", "items": {"type": "string"}}, "answer_index": {"type": "integer"}}
        },
        "handler.publishRequest": {
            "type": "object",
            "required": ["description", "language", "quiz"],
            "properties": {
                "description": {"type": "string"}, "link_url": {"type": "string"}, "language": {"type": "string"},
                "quiz": {"$ref": "#/definitions/handler.quizRequest"}
            }
        },
        "handler.publishResponse": {
            "type": "object",
            "properties": {"ad": {"$ref": "#/definitions/handler.ownedAdResponse"}, "exempt": {"type": "boolean"}, "charged": {"type": "integer"}}
        },
        "handler.draftRequest": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}}},
        "handler.draftResponse": {
            "type": "object",
            "properties": {"question": {"type": "string"}, "options": {"type": "array", "items": {"type": "string"}}, "answer_index": {"type": "integer"}, "language": {"type": "string"}}
        },
        "handler.answerRequest": {"type": "object", "required": ["selected_index"], "properties": {"selected_index": {"type": "integer"}}},
        "handler.setActiveRequest": {"type": "object", "required": ["active"], "properties": {"active": {"type": "boolean"}}},
        "handler.resolutionResponse": {
            "type": "object",
            "properties": {
                "ad_id": {"type": "string"}, "outcome": {"type": "string", "enum": ["correct", "incorrect", "skipped"]},
                "already_resolved": {"type": "boolean"}, "credits_awarded": {"type": "integer"}, "correct_index": {"type": "integer"}
            }
        },
        "handler.clickResponse": {"type": "object", "properties": {"link_url": {"type": "string"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ad-Quiz API",
	Description:      "Credit ledger and ad distribution for ad + quiz cards.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
