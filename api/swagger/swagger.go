package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Roadworks API",
        "description": "Roadworks, road closures and alternate routes for the Namibian road network",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Roadworks", "description": "Admin roadwork and closure management"},
        {"name": "Public", "description": "Public roadwork search"}
    ],
    "paths": {
        "/roadworks": {
            "get": {
                "tags": ["Roadworks"],
                "summary": "List roadworks",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "road", "in": "query", "type": "string"},
                    {"name": "area", "in": "query", "type": "string"},
                    {"name": "region", "in": "query", "type": "string"},
                    {"name": "published", "in": "query", "type": "boolean"},
                    {"name": "priority", "in": "query", "type": "string", "enum": ["low", "medium", "high", "critical"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "fromDate", "in": "query", "type": "string", "format": "date"},
                    {"name": "toDate", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer", "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Roadworks"],
                "summary": "Create roadwork",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoadworkPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadworks/closures": {
            "post": {
                "tags": ["Roadworks"],
                "summary": "Create road closure",
                "description": "Status defaults to Closed when omitted",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoadworkPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadworks/export": {
            "get": {
                "tags": ["Roadworks"],
                "summary": "Export roadwork register",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/roadworks/{id}": {
            "get": {
                "tags": ["Roadworks"],
                "summary": "Get roadwork",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Roadworks"],
                "summary": "Update roadwork",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoadworkPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Roadworks"],
                "summary": "Delete roadwork",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadworks/{id}/closure": {
            "get": {
                "tags": ["Roadworks"],
                "summary": "Get closure with alternate routes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Roadworks"],
                "summary": "Replace road closure",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateClosurePayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadworks/{id}/routes/{index}/approve": {
            "post": {
                "tags": ["Roadworks"],
                "summary": "Approve alternate route",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Roadwork or route not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadworks/{id}/kml": {
            "get": {
                "tags": ["Roadworks"],
                "summary": "Export roadwork as KML",
                "produces": ["application/vnd.google-earth.kml+xml"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/public/roadworks": {
            "get": {
                "tags": ["Public"],
                "summary": "Search public roadworks",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Coordinate": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "Waypoint": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "coordinates": {"$ref": "#/definitions/Coordinate"}
            }
        },
        "RoadClosurePayload": {
            "type": "object",
            "required": ["roadCode", "startCoordinates", "endCoordinates"],
            "properties": {
                "roadCode": {"type": "string"},
                "startTown": {"type": "string"},
                "endTown": {"type": "string"},
                "startCoordinates": {"$ref": "#/definitions/Coordinate"},
                "endCoordinates": {"$ref": "#/definitions/Coordinate"},
                "polylineCoordinates": {"type": "array", "items": {"$ref": "#/definitions/Coordinate"}}
            }
        },
        "AlternateRoutePayload": {
            "type": "object",
            "required": ["routeName", "waypoints"],
            "properties": {
                "routeName": {"type": "string"},
                "roadsUsed": {"type": "array", "items": {"type": "string"}},
                "waypoints": {"type": "array", "items": {"$ref": "#/definitions/Waypoint"}},
                "vehicleType": {"type": "array", "items": {"type": "string"}},
                "distanceKm": {"type": "number"},
                "estimatedTime": {"type": "string"},
                "isRecommended": {"type": "boolean"},
                "approved": {"type": "boolean"}
            }
        },
        "RoadworkPayload": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "maxLength": 200},
                "road": {"type": "string", "maxLength": 50},
                "section": {"type": "string"},
                "area": {"type": "string"},
                "region": {"type": "string"},
                "status": {"type": "string", "enum": ["Planned", "Ongoing", "Completed", "Planned Works", "Ongoing Maintenance", "Closed", "Restricted"]},
                "priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
                "description": {"type": "string", "maxLength": 1000},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "expectedCompletion": {"type": "string"},
                "coordinates": {"$ref": "#/definitions/Coordinate"},
                "published": {"type": "boolean"},
                "roadClosure": {"$ref": "#/definitions/RoadClosurePayload"},
                "alternateRoutes": {"type": "array", "items": {"$ref": "#/definitions/AlternateRoutePayload"}}
            }
        },
        "UpdateClosurePayload": {
            "type": "object",
            "required": ["roadClosure"],
            "properties": {
                "roadClosure": {"$ref": "#/definitions/RoadClosurePayload"},
                "alternateRoutes": {"type": "array", "items": {"$ref": "#/definitions/AlternateRoutePayload"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
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
