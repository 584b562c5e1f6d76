package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scoresheet API",
        "description": "Gradebook service: subjects, groups, score columns and grading criteria",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Cookie-session auth"},
        {"name": "Subjects", "description": "Subject management"},
        {"name": "Grading Criteria", "description": "Per-subject grading scales"},
        {"name": "Groups", "description": "Group scoresheets"},
        {"name": "Learners", "description": "Group rosters"},
        {"name": "Columns", "description": "Score, sum and grade columns"},
        {"name": "Scores", "description": "Cell-level score entry"},
        {"name": "Exports", "description": "Asynchronous CSV/PDF renders"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/v1/auth/signin": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/signout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "End session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Extend session",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid or expired session"}
                }
            }
        },
        "/api/v1/auth/check": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Check session",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/v1/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Subjects"],
                "summary": "Create subject",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/subjects/{id}": {
            "get": {
                "tags": ["Subjects"],
                "summary": "Get subject with criteria and groups",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Subjects"],
                "summary": "Update subject",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Subjects"],
                "summary": "Delete subject",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/subjects/{id}/criteria": {
            "get": {
                "tags": ["Grading Criteria"],
                "summary": "List grading criteria",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Grading Criteria"],
                "summary": "Add grading criterion",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/criteria/{id}": {
            "put": {
                "tags": ["Grading Criteria"],
                "summary": "Update grading criterion",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Grading Criteria"],
                "summary": "Delete grading criterion",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/subjects/{id}/groups": {
            "get": {
                "tags": ["Groups"],
                "summary": "List a subject's groups",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "post": {
                "tags": ["Groups"],
                "summary": "Create group",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/groups/{id}": {
            "get": {
                "tags": ["Groups"],
                "summary": "Get group scoresheet",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Groups"],
                "summary": "Rename group",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Groups"],
                "summary": "Delete group",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/groups/{id}/recompute": {
            "post": {
                "tags": ["Groups"],
                "summary": "Recompute derived columns",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/groups/{id}/learners": {
            "post": {
                "tags": ["Learners"],
                "summary": "Enroll learner",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Duplicate learner id"}
                }
            }
        },
        "/api/v1/groups/{id}/learners/{learnerId}": {
            "put": {
                "tags": ["Learners"],
                "summary": "Update learner",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Learners"],
                "summary": "Remove learner",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/groups/{id}/columns": {
            "post": {
                "tags": ["Columns"],
                "summary": "Add column",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid source columns"}
                }
            }
        },
        "/api/v1/groups/{id}/columns/{columnId}": {
            "put": {
                "tags": ["Columns"],
                "summary": "Update column",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Columns"],
                "summary": "Delete column and scrub references",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/groups/{id}/scores": {
            "put": {
                "tags": ["Scores"],
                "summary": "Enter score cell",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Non-numeric value"}
                }
            }
        },
        "/api/v1/groups/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Enqueue scoresheet export",
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/api/v1/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export status",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download export with signed token",
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid token"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
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
        "Envelope": {
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
