// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
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
        "/wallets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["wallets"], "summary": "List wallets", "responses": {"200": {"description": "Paginated wallets"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["wallets"], "summary": "Create a wallet", "responses": {"201": {"description": "Wallet created"}}}
        },
        "/wallets/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["wallets"], "summary": "Get a wallet", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/wallets/{id}/members": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["wallets"], "summary": "List wallet members", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["wallets"], "summary": "Add a wallet member", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/wallets/{id}/transactions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "List wallet transactions", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Paginated transactions"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Create a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Transaction created"}}}
        },
        "/transactions/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Get a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Update a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Delete a transaction", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/wallets/{id}/budgets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "List monthly budgets", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "integer", "name": "month", "in": "query"}, {"type": "integer", "name": "year", "in": "query"}], "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Set a monthly budget", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/budgets/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Get a budget", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Delete a budget", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/wallets/{id}/recurring-rules": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["recurring-rules"], "summary": "List recurring rules", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "boolean", "name": "active", "in": "query"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["recurring-rules"], "summary": "Create a recurring rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/recurring-rules/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["recurring-rules"], "summary": "Get a recurring rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["recurring-rules"], "summary": "Update a recurring rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Rule advanced concurrently"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["recurring-rules"], "summary": "Delete a recurring rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/wallets/{id}/categories": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "List categories", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "type", "in": "query"}], "responses": {"200": {"description": "Defaults plus wallet categories"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "Create a category", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Name already used"}}}
        },
        "/categories/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "Get a category", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "Update a category", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Default category"}, "409": {"description": "Name already used"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "Delete a category", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "Deleted"}, "403": {"description": "Default category"}}}
        },
        "/pipeline/recurring/run": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["pipeline"], "summary": "Run recurring materialization (pipeline)", "responses": {"200": {"description": "Run result"}, "401": {"description": "Invalid API key"}, "503": {"description": "Pipeline not configured"}}}
        },
        "/pipeline/budgets/recompute": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["pipeline"], "summary": "Recompute budget spending (pipeline)", "responses": {"200": {"description": "Recompute result"}}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"},
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and JWT token.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Walletwise API",
	Description:      "Shared wallets with monthly category budgets and recurring transactions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
