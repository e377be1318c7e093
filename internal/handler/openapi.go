package handler

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves a pre-built OpenAPI document.
type OpenAPIHandler struct {
	doc *openapi3.T
}

func NewOpenAPIHandler(doc *openapi3.T) *OpenAPIHandler {
	return &OpenAPIHandler{doc: doc}
}

// ServeSpec writes the document as JSON.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.doc)
}
