// Package docs holds the swagger document served at /swagger. Regenerate with
// swag init -g cmd/api/main.go.
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
        "/rooms/{code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Get a live room",
                "parameters": [{"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/room.RoomResponse"}},
                    "404": {"description": "Room not found"}
                }
            }
        },
        "/rooms/{code}/end": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "End a meeting",
                "parameters": [{"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/room.EndRoomResponse"}},
                    "404": {"description": "Room not found"}
                }
            }
        },
        "/rooms/{code}/report": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Get the latest meeting report",
                "parameters": [{"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/room.ReportResponse"}},
                    "404": {"description": "No report"}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Open the meeting websocket",
                "parameters": [{"type": "string", "description": "Access token", "name": "token", "in": "query"}],
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        }
    },
    "definitions": {
        "room.EndRoomResponse": {
            "type": "object",
            "properties": {
                "buffered": {"type": "integer"},
                "code": {"type": "string"},
                "epoch": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "room.ParticipantResponse": {
            "type": "object",
            "properties": {
                "activity": {"type": "string"},
                "avatar_url": {"type": "string"},
                "connection_id": {"type": "string"},
                "joined_at": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "room.ReportResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "degraded": {"type": "boolean"},
                "epoch": {"type": "integer"},
                "flush_id": {"type": "string"},
                "id": {"type": "string"},
                "manifest": {"type": "object"},
                "report_key": {"type": "string"},
                "result": {"type": "object"},
                "room_code": {"type": "string"},
                "sentiment": {"type": "string"},
                "summary": {"type": "string"}
            }
        },
        "room.RoomResponse": {
            "type": "object",
            "properties": {
                "active": {"type": "integer"},
                "capacity": {"type": "integer"},
                "code": {"type": "string"},
                "created_at": {"type": "string"},
                "epoch": {"type": "integer"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/room.ParticipantResponse"}},
                "state": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
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
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "meetcore API",
	Description:      "Room directory, signaling relay and transcript pipeline for mesh video meetings",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
