// Package docs registra el documento OpenAPI que sirve /swagger.
// Se regenera con: swag init -g cmd/api/main.go -o internal/docs
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
	"securityDefinitions": {
		"BearerAuth": {
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	},
	"security": [
		{
			"BearerAuth": []
		}
	],
	"paths": {
		"/health": {
			"get": {
				"tags": [
					"system"
				],
				"summary": "Liveness probe",
				"produces": [
					"text/plain"
				],
				"responses": {
					"200": {
						"description": "ok"
					}
				}
			}
		},
		"/me/profile": {
			"get": {
				"tags": [
					"profiles"
				],
				"summary": "Current user's profile",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"404": {
						"description": "profile not found"
					}
				}
			},
			"put": {
				"tags": [
					"profiles"
				],
				"summary": "Create or update the current user's profile",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"409": {
						"description": "role cannot change"
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"full_name": {
									"type": "string"
								},
								"email": {
									"type": "string"
								},
								"phone": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/patients/search": {
			"get": {
				"tags": [
					"profiles"
				],
				"summary": "Find a patient by email or patient code",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"404": {
						"description": "not found"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "q",
						"in": "query",
						"required": true
					}
				]
			}
		},
		"/me/otp-requests": {
			"get": {
				"tags": [
					"otp"
				],
				"summary": "OTP audit trail for the current patient",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/patients/{patientID}/access/otp": {
			"post": {
				"tags": [
					"access"
				],
				"summary": "Ask a patient for access; the code is sent to the patient",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"type": "object"
						}
					},
					"502": {
						"description": "code could not be delivered"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "patientID",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/patients/{patientID}/access/verify": {
			"post": {
				"tags": [
					"access"
				],
				"summary": "Exchange the relayed code for a view_only permission",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"type": "object"
						}
					},
					"422": {
						"description": "invalid or expired code"
					},
					"429": {
						"description": "too many attempts"
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "patientID",
						"in": "path",
						"required": true
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"code": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/me/patients": {
			"get": {
				"tags": [
					"access"
				],
				"summary": "Patients that currently authorize the doctor",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/me/permissions": {
			"get": {
				"tags": [
					"access"
				],
				"summary": "Permissions granted by the current patient",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/permissions/{permissionID}/revoke": {
			"post": {
				"tags": [
					"access"
				],
				"summary": "Revoke a permission",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"403": {
						"description": "not the owner"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "permissionID",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/documents": {
			"post": {
				"tags": [
					"documents"
				],
				"summary": "Register an uploaded document",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"type": "object"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"file_name": {
									"type": "string"
								},
								"file_path": {
									"type": "string"
								},
								"file_type": {
									"type": "string"
								},
								"document_type": {
									"type": "string"
								},
								"description": {
									"type": "string"
								},
								"hospital_name": {
									"type": "string"
								},
								"date_of_document": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/documents/{documentID}": {
			"get": {
				"tags": [
					"documents"
				],
				"summary": "Document metadata (owner or authorized doctor)",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"403": {
						"description": "no current permission"
					},
					"404": {
						"description": "not found"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "documentID",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/me/documents": {
			"get": {
				"tags": [
					"documents"
				],
				"summary": "Current patient's active documents",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/me/documents/trash": {
			"get": {
				"tags": [
					"documents"
				],
				"summary": "Current patient's trashed documents",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/documents/{documentID}/restore": {
			"post": {
				"tags": [
					"documents"
				],
				"summary": "Restore a trashed document",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "documentID",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/patients/{patientID}/documents": {
			"get": {
				"tags": [
					"documents"
				],
				"summary": "A patient's active documents (owner or authorized doctor)",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					},
					"403": {
						"description": "no current permission"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "patientID",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/documents/{documentID}/deletion-requests": {
			"post": {
				"tags": [
					"deletion"
				],
				"summary": "Ask the hospital to delete one of my documents",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"type": "object"
						}
					},
					"409": {
						"description": "a pending request already exists"
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "documentID",
						"in": "path",
						"required": true
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"reason": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/me/deletion-requests": {
			"get": {
				"tags": [
					"deletion"
				],
				"summary": "Current patient's deletion requests",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/admin/deletion-requests": {
			"get": {
				"tags": [
					"deletion"
				],
				"summary": "Pending deletion requests queue",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"type": "object"
							}
						}
					}
				}
			}
		},
		"/admin/deletion-requests/{requestID}/otp": {
			"post": {
				"tags": [
					"deletion"
				],
				"summary": "Send the patient a code to confirm the deletion",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"type": "object"
						}
					},
					"502": {
						"description": "code could not be delivered"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "requestID",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/admin/deletion-requests/{requestID}/approve": {
			"post": {
				"tags": [
					"deletion"
				],
				"summary": "Approve with the code relayed by the patient; trashes the document",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"422": {
						"description": "invalid or expired code"
					},
					"500": {
						"description": "approval not fully persisted"
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "requestID",
						"in": "path",
						"required": true
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object",
							"properties": {
								"code": {
									"type": "string"
								}
							}
						}
					}
				]
			}
		},
		"/admin/deletion-requests/{requestID}/reject": {
			"post": {
				"tags": [
					"deletion"
				],
				"summary": "Reject a pending request (no code needed)",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "requestID",
						"in": "path",
						"required": true
					}
				]
			}
		}
	}
}`

// SwaggerInfo lo ajusta main (Host, Version) antes de servir.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "MediVault API",
	Description:      "Patient-consented cross-tenant access to medical documents, gated by one-time passwords.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
