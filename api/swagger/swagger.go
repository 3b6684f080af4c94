package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Wellness API",
        "description": "Health-office mental health risk pipeline: conversations, mood check-ins and counselor alerts.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and token refresh"},
        {"name": "Conversations", "description": "Student conversations and guided flows"},
        {"name": "Moods", "description": "Daily mood check-ins"},
        {"name": "Alerts", "description": "Counselor alert queue"},
        {"name": "Exports", "description": "Asynchronous alert exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "Tokens issued"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Refresh access token",
                "responses": {"200": {"description": "Tokens rotated"}, "401": {"description": "Invalid refresh token"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke a refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Logged out"}}
            }
        },
        "/conversations/start": {
            "post": {
                "tags": ["Conversations"],
                "summary": "Start or rebind a conversation session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StartConversationRequest"}}],
                "responses": {"200": {"description": "Conversation started"}, "400": {"description": "Invalid conversation type"}}
            }
        },
        "/conversations/messages": {
            "post": {
                "tags": ["Conversations"],
                "summary": "Log a message and classify its risk",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LogMessageRequest"}}],
                "responses": {"200": {"description": "Classification and contextual response"}, "404": {"description": "Conversation not found"}}
            }
        },
        "/conversations/end": {
            "post": {
                "tags": ["Conversations"],
                "summary": "End a conversation",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Conversation ended"}}
            }
        },
        "/conversations/open-up": {
            "post": {
                "tags": ["Conversations"],
                "summary": "Advance the Open-Up flow",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GuidedStepRequest"}}],
                "responses": {"200": {"description": "Next step"}, "400": {"description": "Unknown step"}}
            }
        },
        "/conversations/chat-with-me": {
            "post": {
                "tags": ["Conversations"],
                "summary": "Advance the Chat-With-Me flow",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GuidedStepRequest"}}],
                "responses": {"200": {"description": "Next step with risk level"}, "400": {"description": "Unknown step"}}
            }
        },
        "/moods": {
            "get": {
                "tags": ["Moods"],
                "summary": "Own mood history",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "limit", "type": "integer"}],
                "responses": {"200": {"description": "Mood entries"}}
            },
            "post": {
                "tags": ["Moods"],
                "summary": "Record today's mood",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/MoodCheckinRequest"}}],
                "responses": {"200": {"description": "Entry stored"}}
            }
        },
        "/moods/today": {
            "get": {
                "tags": ["Moods"],
                "summary": "Today's entry",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Entry or null"}}
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List alerts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "enum": ["active", "pending", "resolved"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "Alerts"}, "403": {"description": "Counselor role required"}}
            }
        },
        "/alerts/{id}": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Alert detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Alert"}, "404": {"description": "Not found"}}
            }
        },
        "/alerts/{id}/resolve": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Resolve an alert",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Alert resolved"}}
            }
        },
        "/alerts/{id}/assign": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Assign an alert",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Alert assigned"}, "409": {"description": "Alert already resolved"}}
            }
        },
        "/alerts/referrals": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Create a manual referral",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Referral created"}}
            }
        },
        "/alerts/risk/{user_id}": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Student risk score",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "user_id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Score 0..10"}}
            }
        },
        "/alerts/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an alert export",
                "security": [{"BearerAuth": []}],
                "responses": {"202": {"description": "Export queued"}, "503": {"description": "Exports disabled"}}
            }
        },
        "/alerts/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Status"}, "404": {"description": "Not found"}}
            }
        },
        "/alerts/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [{"in": "query", "name": "token", "required": true, "type": "string"}],
                "produces": ["text/csv", "application/pdf"],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "StartConversationRequest": {
            "type": "object",
            "required": ["conversation_type"],
            "properties": {
                "conversation_type": {"type": "string", "enum": ["mood_checkin", "appointment", "general", "mental_health", "chat_with_me"]},
                "session_id": {"type": "string"}
            }
        },
        "LogMessageRequest": {
            "type": "object",
            "required": ["conversation_id"],
            "properties": {
                "conversation_id": {"type": "string"},
                "content": {"type": "string"},
                "sender": {"type": "string", "enum": ["user", "bot"]}
            }
        },
        "GuidedStepRequest": {
            "type": "object",
            "required": ["conversation_id"],
            "properties": {
                "conversation_id": {"type": "string"},
                "message": {"type": "string"},
                "step": {"type": "string"}
            }
        },
        "MoodCheckinRequest": {
            "type": "object",
            "required": ["mood"],
            "properties": {
                "mood": {"type": "string", "enum": ["happy", "good", "neutral", "sad", "angry"]},
                "note": {"type": "string"},
                "answer_1": {"type": "integer"},
                "answer_2": {"type": "integer"},
                "answer_3": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
