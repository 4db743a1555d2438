package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Airlift Case Management API",
        "description": "Air-ambulance enquiry lifecycle, escalation and reporting core",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Enquiries", "description": "Enquiry lifecycle and transition trail"},
        {"name": "Escalations", "description": "Escalation sub-workflow"},
        {"name": "Queries", "description": "Clarification queries and responses"},
        {"name": "Dashboard", "description": "Aggregated enquiry analytics"},
        {"name": "Notifications", "description": "Workflow event feed"},
        {"name": "Reference", "description": "District and hospital reference data"},
        {"name": "Users", "description": "User administration"},
        {"name": "Reports", "description": "Enquiry register exports"},
        {"name": "Observability", "description": "Runtime counters"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue a token pair",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/enquiries": {
            "get": {
                "tags": ["Enquiries"],
                "summary": "List enquiries",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Enquiries"],
                "summary": "Register a new enquiry",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/enquiries/{id}/transition": {
            "post": {
                "tags": ["Enquiries"],
                "summary": "Apply a lifecycle action",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/enquiries/{id}/escalations": {
            "post": {
                "tags": ["Escalations"],
                "summary": "Escalate an enquiry",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/enquiries/{id}/queries": {
            "post": {
                "tags": ["Queries"],
                "summary": "Raise a clarification query",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/queries/{id}/response": {
            "post": {
                "tags": ["Queries"],
                "summary": "Answer a query",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/dashboard/status-breakdown": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Status breakdown with derived rates",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/dashboard/monthly-trend": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Zero-filled monthly trend",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/enquiries/csv": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export the enquiry register as CSV",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
