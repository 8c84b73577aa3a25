package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Flight Ops API",
        "description": "Flight schedule management with conflict detection and batch uploads",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Flights", "description": "Flight schedule CRUD and status tracking"},
        {"name": "Uploads", "description": "Batch CSV schedule uploads"},
        {"name": "Conflicts", "description": "Schedule conflict review and resolution"},
        {"name": "Exports", "description": "Asynchronous schedule exports"}
    ],
    "paths": {
        "/flights": {
            "get": {
                "tags": ["Flights"],
                "summary": "List flights",
                "parameters": [
                    {"name": "airlineCode", "in": "query", "type": "string"},
                    {"name": "originIcao", "in": "query", "type": "string"},
                    {"name": "destIcao", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Flights"],
                "summary": "Create flight",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFlightRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflicts detected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/flights/{id}": {
            "get": {
                "tags": ["Flights"],
                "summary": "Get flight",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Flights"],
                "summary": "Update flight",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateFlightRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version or scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Flights"],
                "summary": "Soft delete flight",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/flights/{id}/status": {
            "patch": {
                "tags": ["Flights"],
                "summary": "Update flight status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/flights/{id}/history": {
            "get": {
                "tags": ["Flights"],
                "summary": "Flight version history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/flights/live": {
            "get": {
                "tags": ["Flights"],
                "summary": "Today's live board",
                "parameters": [
                    {"name": "station", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/flights/dashboard": {
            "get": {
                "tags": ["Flights"],
                "summary": "Operational overview",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/flights/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue schedule export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/flights/export/{id}/status": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download rendered export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired link"}
                }
            }
        },
        "/uploads": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload schedule CSV",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/uploads/batches": {
            "get": {
                "tags": ["Uploads"],
                "summary": "List upload batches",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/uploads/batches/{id}": {
            "get": {
                "tags": ["Uploads"],
                "summary": "Batch status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/uploads/batches/{id}/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Conflicts for a batch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List unresolved conflicts",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/{id}/resolve": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Resolve conflict",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveConflictRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateFlightRequest": {
            "type": "object",
            "properties": {
                "flightNumber": {"type": "string"},
                "airlineCode": {"type": "string"},
                "aircraftType": {"type": "string"},
                "flightDate": {"type": "string"},
                "departureTime": {"type": "string"},
                "arrivalTime": {"type": "string"},
                "originIcao": {"type": "string"},
                "destIcao": {"type": "string"},
                "flightType": {"type": "string"},
                "gate": {"type": "string"},
                "terminal": {"type": "string"}
            },
            "required": ["flightNumber", "airlineCode", "aircraftType", "flightDate", "departureTime", "arrivalTime", "originIcao", "destIcao", "flightType"]
        },
        "UpdateFlightRequest": {
            "type": "object",
            "properties": {
                "aircraftType": {"type": "string"},
                "departureTime": {"type": "string"},
                "arrivalTime": {"type": "string"},
                "originIcao": {"type": "string"},
                "destIcao": {"type": "string"},
                "gate": {"type": "string"},
                "terminal": {"type": "string"},
                "version": {"type": "integer"}
            },
            "required": ["version"]
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "actualDeparture": {"type": "string"},
                "actualArrival": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["status"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "airlineCode": {"type": "string"},
                "fromDate": {"type": "string"},
                "toDate": {"type": "string"}
            },
            "required": ["format", "fromDate", "toDate"]
        },
        "ResolveConflictRequest": {
            "type": "object",
            "properties": {
                "resolution": {"type": "string"}
            },
            "required": ["resolution"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalItems": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
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
