package openapi

import "github.com/getkin/kin-openapi/openapi3"

// Component schema names.
const (
	SchemaAPIKey           = "APIKey"
	SchemaKeyPrincipal     = "KeyPrincipal"
	SchemaRepoSummary      = "RepoSummary"
	SchemaUserProfile      = "UserProfile"
	SchemaErrorResponse    = "ErrorResponse"
	SchemaCreateKeyRequest = "CreateKeyRequest"
	SchemaUpdateKeyRequest = "UpdateKeyRequest"
	SchemaValidateRequest  = "ValidateRequest"
	SchemaSummarizeRequest = "SummarizeRequest"
	SchemaProfileUpdate    = "UpdateProfileRequest"
)

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func typed(t, format string) *openapi3.SchemaRef {
	s := &openapi3.Schema{Type: &openapi3.Types{t}}
	if format != "" {
		s.Format = format
	}
	return &openapi3.SchemaRef{Value: s}
}

func stringSchema() *openapi3.SchemaRef   { return typed("string", "") }
func boolSchema() *openapi3.SchemaRef     { return typed("boolean", "") }
func dateTimeSchema() *openapi3.SchemaRef { return typed("string", "date-time") }

func nullable(s *openapi3.SchemaRef) *openapi3.SchemaRef {
	s.Value.Nullable = true
	return s
}

func describe(s *openapi3.SchemaRef, desc string) *openapi3.SchemaRef {
	s.Value.Description = desc
	return s
}

func object(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: items,
		},
	}
}

// envelopeOf wraps data in the success envelope.
func envelopeOf(data *openapi3.SchemaRef) *openapi3.SchemaRef {
	return object(openapi3.Schemas{
		"success": boolSchema(),
		"data":    data,
		"message": stringSchema(),
	}, "success")
}

// componentSchemas returns every named schema the API uses.
func componentSchemas() openapi3.Schemas {
	keyType := stringSchema()
	keyType.Value.Enum = []interface{}{"dev", "prod"}

	limit := nullable(typed("integer", "int64"))
	min := 0.0
	limit.Value.Min = &min

	return openapi3.Schemas{
		SchemaAPIKey: object(openapi3.Schemas{
			"id":           typed("string", "uuid"),
			"name":         stringSchema(),
			"secret":       describe(stringSchema(), "Full secret. Treat as a password."),
			"isActive":     boolSchema(),
			"type":         keyType,
			"monthlyLimit": limit,
			"createdAt":    dateTimeSchema(),
			"lastUsedAt":   nullable(dateTimeSchema()),
		}, "id", "name", "secret", "isActive", "type", "createdAt"),

		SchemaKeyPrincipal: object(openapi3.Schemas{
			"id":   typed("string", "uuid"),
			"name": stringSchema(),
		}, "id", "name"),

		SchemaRepoSummary: object(openapi3.Schemas{
			"summary":    stringSchema(),
			"cool_facts": arrayOf(stringSchema()),
		}, "summary", "cool_facts"),

		SchemaUserProfile: object(openapi3.Schemas{
			"id":        stringSchema(),
			"email":     typed("string", "email"),
			"fullName":  stringSchema(),
			"avatarUrl": typed("string", "uri"),
			"createdAt": dateTimeSchema(),
			"updatedAt": dateTimeSchema(),
		}, "id", "email", "createdAt", "updatedAt"),

		SchemaErrorResponse: object(openapi3.Schemas{
			"success": boolSchema(),
			"error":   stringSchema(),
		}, "success", "error"),

		SchemaCreateKeyRequest: object(openapi3.Schemas{
			"name":         stringSchema(),
			"type":         keyType,
			"monthlyLimit": limit,
		}, "name"),

		SchemaUpdateKeyRequest: object(openapi3.Schemas{
			"id":       stringSchema(),
			"name":     stringSchema(),
			"isActive": boolSchema(),
		}, "id"),

		SchemaValidateRequest: object(openapi3.Schemas{
			"apiKeyCredential": stringSchema(),
			"apiKey":           describe(stringSchema(), "Alias for apiKeyCredential."),
		}),

		SchemaSummarizeRequest: object(openapi3.Schemas{
			"repositoryUrl":    typed("string", "uri"),
			"githubUrl":        describe(typed("string", "uri"), "Alias for repositoryUrl."),
			"apiKeyCredential": stringSchema(),
			"apiKey":           describe(stringSchema(), "Alias for apiKeyCredential."),
		}),

		SchemaProfileUpdate: object(openapi3.Schemas{
			"fullName":  stringSchema(),
			"avatarUrl": typed("string", "uri"),
		}),
	}
}
