package weaviate

// weaviateClass is a schema class definition.
type weaviateClass struct {
	Class      string             `json:"class"`
	Vectorizer string             `json:"vectorizer"`
	Properties []weaviateProperty `json:"properties"`
}

// weaviateProperty is a single schema property.
type weaviateProperty struct {
	Name     string   `json:"name"`
	DataType []string `json:"dataType"`
}

// weaviateObject is an object in a batch insert request.
type weaviateObject struct {
	Class      string         `json:"class"`
	ID         string         `json:"id"`
	Vector     []float32      `json:"vector"`
	Properties map[string]any `json:"properties"`
}

// weaviateBatchRequest is the body for POST /v1/batch/objects.
type weaviateBatchRequest struct {
	Objects []weaviateObject `json:"objects"`
}

// graphqlRequest is the body for POST /v1/graphql.
type graphqlRequest struct {
	Query string `json:"query"`
}

// graphqlError is a single error entry in a GraphQL response.
type graphqlError struct {
	Message string `json:"message"`
}

// graphqlResponse is the envelope of a GraphQL response. Data is decoded in
// a second pass once the caller knows the expected shape.
type graphqlResponse struct {
	Data   map[string]map[string]any `json:"data"`
	Errors []graphqlError            `json:"errors"`
}
