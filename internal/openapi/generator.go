package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Security scheme names.
const (
	SecurityAPIKey  = "apiKey"
	SecuritySession = "sessionCookie"
	SecurityBearer  = "bearerAuth"
)

// Options controls the generated document.
type Options struct {
	BaseURL      string
	Version      string
	APIKeyHeader string
	// SessionRequired marks the dashboard routes as session protected.
	SessionRequired bool
}

// Generate builds the OpenAPI 3.1 document for the HTTP API.
func Generate(opts Options) *openapi3.T {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Dandi API",
			Description: "API key management, key validation and GitHub repository summaries.",
			Version:     opts.Version,
		},
	}
	if opts.BaseURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.BaseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		SecurityAPIKey: &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type: "apiKey",
				In:   "header",
				Name: opts.APIKeyHeader,
			},
		},
		SecuritySession: &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type: "apiKey",
				In:   "cookie",
				Name: "dandi_session",
			},
		},
		SecurityBearer: &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()

	var dashboardSecurity *openapi3.SecurityRequirements
	if opts.SessionRequired {
		dashboardSecurity = &openapi3.SecurityRequirements{
			{SecuritySession: {}},
			{SecurityBearer: {}},
		}
	}
	keySecurity := &openapi3.SecurityRequirements{{SecurityAPIKey: {}}}

	addKeyPaths(doc, dashboardSecurity)
	addProfilePaths(doc, dashboardSecurity)

	doc.Paths.Set("/api/protected", &openapi3.PathItem{
		Post: withSecurity(&openapi3.Operation{
			Tags:        []string{"validation"},
			Summary:     "Validate an API key",
			Description: "The key may be sent in the body or in the API key header. Unknown and inactive keys get the same answer.",
			OperationID: "validateApiKey",
			RequestBody: jsonBody(SchemaValidateRequest, false),
			Responses:   newResponses("200", "Key is valid", envelopeOf(ref(SchemaKeyPrincipal)), "401", "500"),
		}, keySecurity),
	})

	summarize := withSecurity(&openapi3.Operation{
		Tags:        []string{"summarizer"},
		Summary:     "Summarize a GitHub repository",
		Description: "Authenticates the key, checks the URL and asks the language model for a summary with a few facts.",
		OperationID: "summarizeRepository",
		RequestBody: jsonBody(SchemaSummarizeRequest, true),
		Responses:   newResponses("200", "Repository summary", ref(SchemaRepoSummary), "400", "401", "500"),
	}, keySecurity)
	doc.Paths.Set("/api/summarize", &openapi3.PathItem{Post: summarize})
	doc.Paths.Set("/api/github-summarizer", &openapi3.PathItem{Post: summarize})

	return doc
}

func addKeyPaths(doc *openapi3.T, security *openapi3.SecurityRequirements) {
	key := envelopeOf(ref(SchemaAPIKey))

	idParam := &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        "id",
			In:          "query",
			Description: "ID of the key to delete",
			Required:    true,
			Schema:      stringSchema(),
		},
	}

	doc.Paths.Set("/api/keys", &openapi3.PathItem{
		Get: withSecurity(&openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "List API keys",
			Description: "Returns every key, newest first, including full secrets.",
			OperationID: "listApiKeys",
			Responses:   newResponses("200", "All keys", envelopeOf(arrayOf(ref(SchemaAPIKey))), "401", "500"),
		}, security),
		Post: withSecurity(&openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "Create an API key",
			OperationID: "createApiKey",
			RequestBody: jsonBody(SchemaCreateKeyRequest, true),
			Responses:   newResponses("201", "Created key", key, "400", "401", "500"),
		}, security),
		Put: withSecurity(&openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "Rename or toggle an API key",
			OperationID: "updateApiKey",
			RequestBody: jsonBody(SchemaUpdateKeyRequest, true),
			Responses:   newResponses("200", "Updated key", key, "400", "401", "404", "500"),
		}, security),
		Delete: withSecurity(&openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "Delete an API key",
			OperationID: "deleteApiKey",
			Parameters:  openapi3.Parameters{idParam},
			Responses:   newResponses("200", "Deleted key", key, "400", "401", "404", "500"),
		}, security),
	})
}

func addProfilePaths(doc *openapi3.T, security *openapi3.SecurityRequirements) {
	profile := envelopeOf(ref(SchemaUserProfile))

	doc.Paths.Set("/api/profile", &openapi3.PathItem{
		Get: withSecurity(&openapi3.Operation{
			Tags:        []string{"profile"},
			Summary:     "Get the signed-in user's profile",
			OperationID: "getProfile",
			Responses:   newResponses("200", "Profile", profile, "401", "404", "500"),
		}, security),
		Post: withSecurity(&openapi3.Operation{
			Tags:        []string{"profile"},
			Summary:     "Create the signed-in user's profile if missing",
			OperationID: "ensureProfile",
			Responses:   newResponses("200", "Existing profile", profile, "201", "401", "500"),
		}, security),
		Put: withSecurity(&openapi3.Operation{
			Tags:        []string{"profile"},
			Summary:     "Update the signed-in user's profile",
			OperationID: "updateProfile",
			RequestBody: jsonBody(SchemaProfileUpdate, true),
			Responses:   newResponses("200", "Updated profile", profile, "400", "401", "404", "500"),
		}, security),
	})
}

func withSecurity(op *openapi3.Operation, security *openapi3.SecurityRequirements) *openapi3.Operation {
	op.Security = security
	return op
}

func jsonBody(schema string, required bool) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: required,
			Content:  openapi3.NewContentWithJSONSchemaRef(ref(schema)),
		},
	}
}

var statusText = map[string]string{
	"201": "Created",
	"400": "Bad request",
	"401": "Unauthorized",
	"404": "Not found",
	"500": "Internal server error",
}

// newResponses builds the success response plus the listed error codes.
// A 201 in the extra list reuses the success schema.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, extra ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := ref(SchemaErrorResponse)
	for _, code := range extra {
		desc := statusText[code]
		content := openapi3.NewContentWithJSONSchemaRef(errorRef)
		if code[0] == '2' {
			content = openapi3.NewContentWithJSONSchemaRef(schema)
		}
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     content,
			},
		})
	}

	return responses
}
