// Package signing holds the OpenAPI document served at /swagger/.
// Regenerate with: swag init -g internal/signing/http/router.go -o api/signing --outputTypes go
package signing

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/quill"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/signature-requests": {
            "post": {
                "summary": "Create signature request",
                "tags": [
                    "Signature Requests"
                ],
                "produces": [
                    "application/json"
                ],
                "description": "Creates a pending request with one capability token per signer. The tokens are only ever returned here.",
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "GatewayKey": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Acting company",
                        "name": "X-Company-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Acting user",
                        "name": "X-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Client-chosen retry key",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "description": "Document and signer slots",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.CreateSignatureRequestRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/signsdk.CreateSignatureRequestResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            },
            "get": {
                "summary": "List signature requests",
                "tags": [
                    "Signature Requests"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "GatewayKey": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Acting company",
                        "name": "X-Company-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "pending or completed",
                        "name": "status",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "Page size (default 20, max 100)",
                        "name": "limit",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "Items to skip",
                        "name": "offset",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ListSignatureRequestsResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/signature-requests/{ref}": {
            "get": {
                "summary": "Get signature request",
                "tags": [
                    "Signature Requests"
                ],
                "produces": [
                    "application/json"
                ],
                "description": "With a request id and the gateway credential, returns the back-office detail. With a signer capability token, returns that signer's public summary (signsdk.SignerSummary).",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Request id or signer token",
                        "name": "ref",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.SignatureRequest"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/signature-requests/{id}/signers": {
            "get": {
                "summary": "List signers",
                "tags": [
                    "Signature Requests"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "GatewayKey": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Acting company",
                        "name": "X-Company-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Request id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ListSignersResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/signature-requests/layout/{token}": {
            "get": {
                "summary": "Get signature placement",
                "tags": [
                    "Signing"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Signer capability token",
                        "name": "token",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.LayoutResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "410": {
                        "description": "Gone",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "Too Many Requests",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/signature-requests/consent": {
            "post": {
                "summary": "Register consent",
                "tags": [
                    "Signing"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Signer token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.TokenRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ConsentResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/signature-requests/submit": {
            "post": {
                "summary": "Submit signature",
                "tags": [
                    "Signing"
                ],
                "produces": [
                    "application/json"
                ],
                "description": "Signs for the token's signer. downstream_pending=true means the signature is recorded and sealing continues in the background.",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Signer token, signature image (base64) and certificate metadata",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.SubmitRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.SubmitResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/signature-requests/reject": {
            "post": {
                "summary": "Reject signature request",
                "tags": [
                    "Signing"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Signer token and optional reason",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.RejectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.RejectResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/preview/available/{signerId}": {
            "get": {
                "summary": "Check preview availability",
                "tags": [
                    "Preview"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Signer id",
                        "name": "signerId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.PreviewAvailability"
                        }
                    },
                    "429": {
                        "description": "Too Many Requests",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/preview/info": {
            "get": {
                "summary": "Get preview grant metadata",
                "tags": [
                    "Preview"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Preview access token",
                        "name": "access_token",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Preview session id",
                        "name": "session_id",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.PreviewInfo"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/preview/status": {
            "get": {
                "summary": "Validate preview credentials",
                "tags": [
                    "Preview"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Preview access token",
                        "name": "access_token",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Preview session id",
                        "name": "session_id",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.PreviewStatus"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/preview/access": {
            "post": {
                "summary": "Redeem a preview access",
                "tags": [
                    "Preview"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Preview credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.PreviewAccessRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.PreviewAccessResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/preview/reissue": {
            "post": {
                "summary": "Re-issue preview credentials",
                "tags": [
                    "Preview"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "GatewayKey": []
                    }
                ],
                "parameters": [
                    {
                        "description": "Signer id",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.ReissuePreviewRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.PreviewCredentials"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/preview/invalidate": {
            "post": {
                "summary": "Invalidate a preview grant",
                "tags": [
                    "Preview"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "GatewayKey": []
                    }
                ],
                "parameters": [
                    {
                        "description": "grant_id or signer_id",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/signsdk.InvalidateGrantRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.InvalidateGrantResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/signsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/livez": {
            "get": {
                "summary": "Health Check Endpoint",
                "tags": [
                    "Health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.HealthResponse"
                        }
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "summary": "Readiness Check Endpoint",
                "tags": [
                    "Health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/signsdk.HealthResponse"
                        }
                    }
                }
            }
        },
        "/.well-known/jwks.json": {
            "get": {
                "summary": "Get JWKS",
                "tags": [
                    "well-known"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "The JSON Web Key Set",
                        "schema": {
                            "$ref": "#/definitions/viewticket.JWKS"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "signsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "error_description": {
                    "type": "string"
                },
                "details": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "signsdk.BoxTemplate": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "x": {
                    "type": "number"
                },
                "y": {
                    "type": "number"
                },
                "width": {
                    "type": "number"
                },
                "height": {
                    "type": "number"
                },
                "initials": {
                    "type": "boolean"
                },
                "date_marker": {
                    "type": "boolean"
                }
            }
        },
        "signsdk.SignerSlot": {
            "type": "object",
            "properties": {
                "customer_id": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "order": {
                    "type": "integer"
                },
                "placement": {
                    "$ref": "#/definitions/signsdk.BoxTemplate"
                }
            }
        },
        "signsdk.CreateSignatureRequestRequest": {
            "type": "object",
            "properties": {
                "document_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "signers": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/signsdk.SignerSlot"
                    }
                }
            }
        },
        "signsdk.SignerToken": {
            "type": "object",
            "properties": {
                "signer_id": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "token": {
                    "type": "string"
                }
            }
        },
        "signsdk.Signer": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "customer_id": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "order": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                },
                "placement": {
                    "$ref": "#/definitions/signsdk.BoxTemplate"
                },
                "consent_agreed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "signed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "rejected_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "rejection_reason": {
                    "type": "string"
                }
            }
        },
        "signsdk.SignatureRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "document_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "company_id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "rejected": {
                    "type": "boolean"
                },
                "version": {
                    "type": "integer"
                },
                "sealed_document_id": {
                    "type": "string"
                },
                "completed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "sealed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "signers": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/signsdk.Signer"
                    }
                }
            }
        },
        "signsdk.CreateSignatureRequestResponse": {
            "type": "object",
            "properties": {
                "signature_request": {
                    "$ref": "#/definitions/signsdk.SignatureRequest"
                },
                "signer_tokens": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/signsdk.SignerToken"
                    }
                }
            }
        },
        "signsdk.ListSignatureRequestsResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/signsdk.SignatureRequest"
                    }
                },
                "total": {
                    "type": "integer"
                },
                "limit": {
                    "type": "integer"
                },
                "offset": {
                    "type": "integer"
                }
            }
        },
        "signsdk.ListSignersResponse": {
            "type": "object",
            "properties": {
                "signers": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/signsdk.Signer"
                    }
                }
            }
        },
        "signsdk.SignerSummary": {
            "type": "object",
            "properties": {
                "signature_request_id": {
                    "type": "string"
                },
                "document_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "rejected": {
                    "type": "boolean"
                },
                "signer_id": {
                    "type": "string"
                },
                "signer_status": {
                    "type": "string"
                },
                "signer_order": {
                    "type": "integer"
                },
                "signer_count": {
                    "type": "integer"
                },
                "signed_count": {
                    "type": "integer"
                }
            }
        },
        "signsdk.LayoutResponse": {
            "type": "object",
            "properties": {
                "signature_request_id": {
                    "type": "string"
                },
                "document_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                },
                "signer_name": {
                    "type": "string"
                },
                "order": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                },
                "placement": {
                    "$ref": "#/definitions/signsdk.BoxTemplate"
                }
            }
        },
        "signsdk.ReissuePreviewRequest": {
            "type": "object",
            "properties": {
                "signer_id": {
                    "type": "string"
                }
            }
        },
        "signsdk.TokenRequest": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "string"
                }
            }
        },
        "signsdk.ConsentResponse": {
            "type": "object",
            "properties": {
                "signature_request_id": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "consented_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "signsdk.SubmitRequest": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "string"
                },
                "signature_image": {
                    "type": "string",
                    "format": "base64"
                },
                "certificate": {
                    "type": "object"
                }
            }
        },
        "signsdk.PreviewCredentials": {
            "type": "object",
            "properties": {
                "grant_id": {
                    "type": "string"
                },
                "access_token": {
                    "type": "string"
                },
                "session_id": {
                    "type": "string"
                },
                "fingerprint": {
                    "type": "string"
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "max_access_count": {
                    "type": "integer"
                }
            }
        },
        "signsdk.SubmitResponse": {
            "type": "object",
            "properties": {
                "signature_request_id": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                },
                "request_status": {
                    "type": "string"
                },
                "signed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "completed": {
                    "type": "boolean"
                },
                "downstream_pending": {
                    "type": "boolean"
                },
                "preview": {
                    "$ref": "#/definitions/signsdk.PreviewCredentials"
                }
            }
        },
        "signsdk.RejectRequest": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "string"
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "signsdk.RejectResponse": {
            "type": "object",
            "properties": {
                "signature_request_id": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                },
                "rejected_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "signsdk.PreviewAvailability": {
            "type": "object",
            "properties": {
                "available": {
                    "type": "boolean"
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "signsdk.PreviewInfo": {
            "type": "object",
            "properties": {
                "grant_id": {
                    "type": "string"
                },
                "signature_request_id": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                },
                "sealed_document_id": {
                    "type": "string"
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "active": {
                    "type": "boolean"
                },
                "access_count": {
                    "type": "integer"
                },
                "max_access_count": {
                    "type": "integer"
                },
                "remaining_accesses": {
                    "type": "integer"
                },
                "last_accessed_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "signsdk.PreviewStatus": {
            "type": "object",
            "properties": {
                "can_access": {
                    "type": "boolean"
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "remaining_accesses": {
                    "type": "integer"
                }
            }
        },
        "signsdk.PreviewAccessRequest": {
            "type": "object",
            "properties": {
                "access_token": {
                    "type": "string"
                },
                "session_id": {
                    "type": "string"
                },
                "fingerprint": {
                    "type": "string"
                },
                "user_agent": {
                    "type": "string"
                }
            }
        },
        "signsdk.PreviewAccessResponse": {
            "type": "object",
            "properties": {
                "grant_id": {
                    "type": "string"
                },
                "sealed_document_id": {
                    "type": "string"
                },
                "access_count": {
                    "type": "integer"
                },
                "remaining_accesses": {
                    "type": "integer"
                },
                "view_ticket": {
                    "type": "string"
                },
                "ticket_expires_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "signsdk.InvalidateGrantRequest": {
            "type": "object",
            "properties": {
                "grant_id": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                }
            }
        },
        "signsdk.InvalidateGrantResponse": {
            "type": "object",
            "properties": {
                "grant_id": {
                    "type": "string"
                },
                "signer_id": {
                    "type": "string"
                },
                "active": {
                    "type": "boolean"
                }
            }
        },
        "signsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {
                    "type": "string"
                },
                "outbox": {
                    "type": "string"
                }
            }
        },
        "signsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "uptime": {
                    "type": "string"
                },
                "version": {
                    "type": "string"
                },
                "checks": {
                    "$ref": "#/definitions/signsdk.HealthChecks"
                }
            }
        },
        "viewticket.JWK": {
            "type": "object",
            "properties": {
                "kty": {
                    "type": "string"
                },
                "use": {
                    "type": "string"
                },
                "alg": {
                    "type": "string"
                },
                "kid": {
                    "type": "string"
                },
                "crv": {
                    "type": "string"
                },
                "x": {
                    "type": "string"
                }
            }
        },
        "viewticket.JWKS": {
            "type": "object",
            "properties": {
                "keys": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/viewticket.JWK"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "GatewayKey": {
            "description": "Shared credential asserted by the edge gateway.",
            "type": "apiKey",
            "name": "X-Gateway-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Quill Signing Service API",
	Description:      "Electronic signature workflow: signature requests, token-authenticated signing, and bounded previews of the sealed document.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
