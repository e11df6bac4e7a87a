package worker

// IndexRequestPayload asks for a full (re-)index of one logical document.
type IndexRequestPayload struct {
	DocumentID    string `json:"document_id"`
	Tenant        string `json:"tenant"`
	Namespace     string `json:"namespace"`
	KnowledgeType string `json:"knowledge_type,omitempty"`

	Title   string `json:"title,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`

	Attributes map[string]interface{} `json:"attributes,omitempty"`

	// Tool is set for tool-knowledge documents; Content is ignored then.
	Tool *ToolPayload `json:"tool,omitempty"`

	CorrelationID string `json:"correlation_id"`
}

type ToolPayload struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	InputSchema    string   `json:"input_schema"`
	Examples       []string `json:"examples"`
	RenderTemplate string   `json:"render_template,omitempty"`
}

// Admin actions on an already-indexed document.
const (
	ActionDelete         = "delete"
	ActionUpdateMetadata = "update_metadata"
)

// AdminPayload carries document delete and metadata update requests.
type AdminPayload struct {
	Action        string `json:"action"`
	DocumentID    string `json:"document_id"`
	Tenant        string `json:"tenant"`
	Namespace     string `json:"namespace"`
	KnowledgeType string `json:"knowledge_type,omitempty"`

	// Attributes is the partial attribute map for update_metadata.
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	CorrelationID string `json:"correlation_id"`
}
