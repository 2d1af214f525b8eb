// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/users/register": {"post": {"tags": ["users"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "email already registered"}}}},
        "/v1/users/login": {"post": {"tags": ["users"], "summary": "Authenticate and get a JWT", "responses": {"200": {"description": "OK"}, "401": {"description": "invalid credentials"}}}},
        "/v1/catalog/{level}": {
            "get": {"tags": ["catalog"], "summary": "List catalog nodes visible to the caller", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["catalog"], "summary": "Create a catalog node", "responses": {"201": {"description": "Created"}}}
        },
        "/v1/catalog/{level}/{id}": {
            "get": {"tags": ["catalog"], "summary": "Get a catalog node", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "patch": {"tags": ["catalog"], "summary": "Update name or description of a catalog node", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/catalog/{level}/{id}/active": {"put": {"tags": ["catalog"], "summary": "Activate or deactivate a catalog node", "responses": {"204": {"description": "No Content"}}}},
        "/v1/catalog/{level}/{id}/visibility": {"get": {"tags": ["catalog"], "summary": "Resolve visibility of a catalog node for the caller", "responses": {"200": {"description": "OK"}}}},
        "/v1/services": {
            "get": {"tags": ["services"], "summary": "List services pinned to one catalog node", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["services"], "summary": "Create a service, or a variant when parent_service_id is set", "responses": {"201": {"description": "Created"}, "422": {"description": "variant assignment differs from its parent"}}}
        },
        "/v1/services/{id}": {
            "get": {"tags": ["services"], "summary": "Get a service", "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["services"], "summary": "Update descriptive fields, price, time or sort order", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["services"], "summary": "Delete a service with its variants and overrides", "responses": {"204": {"description": "No Content"}}}
        },
        "/v1/services/{id}/variants": {"get": {"tags": ["services"], "summary": "List the variants of a service", "responses": {"200": {"description": "OK"}}}},
        "/v1/services/{id}/active": {"put": {"tags": ["services"], "summary": "Activate or deactivate a service", "responses": {"204": {"description": "No Content"}}}},
        "/v1/products/{id}/services": {"get": {"tags": ["products"], "summary": "Services that apply to a product, with overrides applied", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/v1/products/{id}/services/{serviceId}/override": {
            "get": {"tags": ["overrides"], "summary": "Stored override or its all-default equivalent", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["overrides"], "summary": "Upsert price and/or time", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["overrides"], "summary": "Remove the override row", "responses": {"204": {"description": "No Content"}}}
        },
        "/v1/products/{id}/services/{serviceId}/disabled": {"put": {"tags": ["overrides"], "summary": "Disable or re-enable a service for one product", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Somerville Repair Catalog API",
	Description:      "Catalog hierarchy, repair services, per-product overrides and service resolution.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
