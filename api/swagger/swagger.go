// Package swagger holds the OpenAPI description served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Prefix the token with 'Bearer '."
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate and receive a token pair",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Rotate a refresh token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid or expired token"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Revoke the caller's sessions",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Return the caller's profile",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/outcomes": {
            "get": {
                "tags": ["outcomes"],
                "security": [{"BearerAuth": []}],
                "summary": "List the outcome catalog",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["outcomes"],
                "security": [{"BearerAuth": []}],
                "summary": "Create an outcome (admin)",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/outcomes/{id}": {
            "get": {
                "tags": ["outcomes"],
                "security": [{"BearerAuth": []}],
                "summary": "Get an outcome with its elements",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["outcomes"],
                "security": [{"BearerAuth": []}],
                "summary": "Update an outcome (admin)",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/outcomes/{id}/elements": {
            "post": {
                "tags": ["outcomes"],
                "security": [{"BearerAuth": []}],
                "summary": "Add an element to an outcome (admin)",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "List courses visible to the caller",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Start a submission",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Get a course with links and siblings",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Update step-one fields and crosslist set",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Locked or not the parent"}}
            },
            "delete": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete a draft",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/courses/{id}/worksheet": {
            "get": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Get the step-two narratives",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Save narratives, optionally submit",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Locked"}}
            }
        },
        "/courses/{id}/transition": {
            "post": {
                "tags": ["review"],
                "security": [{"BearerAuth": []}],
                "summary": "Apply a workflow action (manager)",
                "responses": {"200": {"description": "OK, including benign no-ops"}, "409": {"description": "Version conflict"}}
            }
        },
        "/courses/{id}/designation": {
            "put": {
                "tags": ["review"],
                "security": [{"BearerAuth": []}],
                "summary": "Set the designation label (manager)",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/links/{id}/state": {
            "put": {
                "tags": ["review"],
                "security": [{"BearerAuth": []}],
                "summary": "Flip a per-outcome review flag (manager)",
                "responses": {"200": {"description": "OK, including benign no-ops"}}
            }
        },
        "/courses/{id}/comments": {
            "get": {
                "tags": ["annotations"],
                "security": [{"BearerAuth": []}],
                "summary": "List the comment log",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["annotations"],
                "security": [{"BearerAuth": []}],
                "summary": "Append a comment",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}/adenda": {
            "get": {
                "tags": ["annotations"],
                "security": [{"BearerAuth": []}],
                "summary": "Get the revision-feedback note",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["annotations"],
                "security": [{"BearerAuth": []}],
                "summary": "Write the revision-feedback note (manager)",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses/{id}/documents": {
            "get": {
                "tags": ["documents"],
                "security": [{"BearerAuth": []}],
                "summary": "List attached documents",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["documents"],
                "security": [{"BearerAuth": []}],
                "summary": "Upload a document",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Rejected file"}}
            }
        },
        "/documents/{id}/link": {
            "get": {
                "tags": ["documents"],
                "security": [{"BearerAuth": []}],
                "summary": "Issue a signed download link",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["documents"],
                "summary": "Stream a file for a valid signed token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid or expired token"}}
            }
        },
        "/dashboard/designations": {
            "get": {
                "tags": ["dashboard"],
                "security": [{"BearerAuth": []}],
                "summary": "Designation counts per workflow status (manager)",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/courses": {
            "get": {
                "tags": ["exports"],
                "security": [{"BearerAuth": []}],
                "summary": "Course roster report, csv or pdf (manager)",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/designations": {
            "get": {
                "tags": ["exports"],
                "security": [{"BearerAuth": []}],
                "summary": "Designation summary report, csv or pdf (manager)",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/audit": {
            "get": {
                "tags": ["audit"],
                "security": [{"BearerAuth": []}],
                "summary": "List audit records (admin)",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "GEOC Course Review API",
	Description:      "Institutional course outcome review workflow.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
