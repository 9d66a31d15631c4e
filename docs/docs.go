// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {
                "description": "Filter by a case-insensitive name substring and an inclusive price range, then sort",
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "List products",
                "parameters": [
                    {"type": "string", "description": "Name contains (case-insensitive)", "name": "search", "in": "query"},
                    {"type": "number", "description": "Lowest price, inclusive", "name": "minPrice", "in": "query"},
                    {"type": "number", "description": "Highest price, inclusive", "name": "maxPrice", "in": "query"},
                    {
                        "enum": ["price_asc", "price_desc", "name_asc", "name_desc"],
                        "type": "string",
                        "default": "name_asc",
                        "description": "Sort order",
                        "name": "sort",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/product.ProductResponse"}}},
                    "400": {"description": "Invalid price bound", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "Create a new product",
                "parameters": [
                    {"description": "Product details", "name": "product", "in": "body", "required": true, "schema": {"$ref": "#/definitions/product.ProductRequest"}}
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {"$ref": "#/definitions/product.ProductResponse"},
                        "headers": {"Location": {"type": "string", "description": "/api/products/{id}"}}
                    },
                    "400": {"description": "Validation failure or invalid request body", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "Get a product by ID",
                "parameters": [
                    {"type": "string", "description": "Product ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/product.ProductResponse"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "Replace a product's editable fields",
                "parameters": [
                    {"type": "string", "description": "Product ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "Updated product details", "name": "product", "in": "body", "required": true, "schema": {"$ref": "#/definitions/product.ProductRequest"}}
                ],
                "responses": {
                    "204": {"description": "Product updated successfully"},
                    "400": {"description": "Validation failure or invalid request body", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "Delete a product",
                "parameters": [
                    {"type": "string", "description": "Product ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Product deleted successfully"},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "Product not found."}
            }
        },
        "product.ProductRequest": {
            "type": "object",
            "properties": {
                "categoryImageUrl": {"type": "string", "example": "https://cdn.example.com/lamps.png"},
                "name": {"type": "string", "example": "Desk Lamp"},
                "price": {"type": "number", "example": 24.99},
                "stockQuantity": {"type": "integer", "example": 12}
            }
        },
        "product.ProductResponse": {
            "type": "object",
            "properties": {
                "categoryImageUrl": {"type": "string"},
                "createdAtUtc": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number", "example": 24.99},
                "stockQuantity": {"type": "integer"},
                "updatedAtUtc": {"type": "string"}
            }
        }
    },
    "tags": [
        {"description": "Product catalog endpoints", "name": "Products"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Product Catalog API",
	Description:      "CRUD API for a product catalog with filtering, sorting, caching and change events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
