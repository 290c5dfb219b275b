package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Memoire API",
        "description": "Thesis allocation, supervision, defense and archive workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token refresh"},
        {"name": "Topics", "description": "Topic proposal and review"},
        {"name": "Preferences", "description": "Student topic choices"},
        {"name": "Allocation", "description": "Manual and automatic topic allocation"},
        {"name": "Supervision", "description": "Supervision session log"},
        {"name": "Dossiers", "description": "Defense dossier documents and review"},
        {"name": "Juries", "description": "Jury composition"},
        {"name": "Defenses", "description": "Defense scheduling, grading and deliberation"},
        {"name": "Catalog", "description": "Public memoir archive"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/topics": {
            "get": {
                "tags": ["Topics"],
                "summary": "List topics",
                "responses": {"200": {"description": "Topic page"}}
            },
            "post": {
                "tags": ["Topics"],
                "summary": "Propose a topic",
                "responses": {
                    "201": {"description": "Created topic"},
                    "403": {"description": "Caller is not a supervisor"}
                }
            }
        },
        "/topics/{id}/review": {
            "post": {
                "tags": ["Topics"],
                "summary": "Approve or reject a proposed topic",
                "responses": {
                    "200": {"description": "Reviewed topic"},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/preferences": {
            "get": {
                "tags": ["Preferences"],
                "summary": "List my ranked preferences",
                "responses": {"200": {"description": "Pending preferences"}}
            },
            "put": {
                "tags": ["Preferences"],
                "summary": "Submit up to three ranked topic choices",
                "responses": {
                    "200": {"description": "Recorded preferences"},
                    "409": {"description": "Student already assigned"}
                }
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Allocation"],
                "summary": "List assignments",
                "responses": {"200": {"description": "Assignment page"}}
            },
            "post": {
                "tags": ["Allocation"],
                "summary": "Assign a topic manually",
                "responses": {
                    "201": {"description": "Confirmed assignment"},
                    "409": {"description": "Capacity exhausted or already assigned"}
                }
            }
        },
        "/assignments/auto": {
            "post": {
                "tags": ["Allocation"],
                "summary": "Run the automatic allocation batch",
                "responses": {"200": {"description": "Placements and conflicts"}}
            }
        },
        "/assignments/{id}/sessions": {
            "get": {
                "tags": ["Supervision"],
                "summary": "List supervision sessions",
                "responses": {"200": {"description": "Session list"}}
            },
            "post": {
                "tags": ["Supervision"],
                "summary": "Log a supervision session",
                "responses": {
                    "201": {"description": "Logged session"},
                    "403": {"description": "Not the supervising faculty member"}
                }
            }
        },
        "/dossiers/documents/{kind}": {
            "post": {
                "tags": ["Dossiers"],
                "summary": "Upload one required PDF document",
                "responses": {
                    "200": {"description": "Updated dossier"},
                    "400": {"description": "Not a PDF or too large"}
                }
            }
        },
        "/dossiers/{id}/authorize": {
            "post": {
                "tags": ["Dossiers"],
                "summary": "Authorize the defense",
                "responses": {
                    "200": {"description": "Updated dossier"},
                    "409": {"description": "Dossier incomplete"}
                }
            }
        },
        "/juries": {
            "post": {
                "tags": ["Juries"],
                "summary": "Form a four-seat jury",
                "responses": {
                    "201": {"description": "Formed jury"},
                    "409": {"description": "Member unavailable"}
                }
            }
        },
        "/defenses": {
            "get": {
                "tags": ["Defenses"],
                "summary": "List defenses",
                "responses": {"200": {"description": "Defense page"}}
            },
            "post": {
                "tags": ["Defenses"],
                "summary": "Schedule a defense",
                "responses": {
                    "201": {"description": "Scheduled defense"},
                    "409": {"description": "Slot overlap or incomplete dossier"}
                }
            }
        },
        "/defenses/{id}/scores": {
            "post": {
                "tags": ["Defenses"],
                "summary": "Submit the score for the caller's jury seat",
                "responses": {
                    "200": {"description": "Defense with recorded score"},
                    "403": {"description": "Caller does not sit on this jury"}
                }
            }
        },
        "/defenses/{id}/finalize": {
            "post": {
                "tags": ["Defenses"],
                "summary": "Close deliberation and archive the memoir",
                "responses": {
                    "200": {"description": "Final score, mention and archive entry"},
                    "403": {"description": "Caller is neither the jury president nor an admin"},
                    "409": {"description": "Missing role scores"}
                }
            }
        },
        "/catalog": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Browse the public memoir catalog",
                "responses": {"200": {"description": "Catalog page"}}
            }
        },
        "/catalog/download": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Download a memoir with a signed token",
                "responses": {
                    "200": {"description": "PDF stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
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
