package catalog

// RequiredDocument describes one document an applicant is expected to upload
// for a case type.
type RequiredDocument struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Required    bool   `yaml:"required" json:"required"`
}

// CaseTypeDefinition is an immutable entry of the catalog.
type CaseTypeDefinition struct {
	ID                string             `yaml:"id" json:"id"`
	Name              string             `yaml:"name" json:"name"`
	Description       string             `yaml:"description" json:"description"`
	RequiredDocuments []RequiredDocument `yaml:"required_documents" json:"required_documents"`
}

// RequiredNames returns the names of documents marked required, in catalog order.
func (d CaseTypeDefinition) RequiredNames() []string {
	names := make([]string, 0, len(d.RequiredDocuments))
	for _, doc := range d.RequiredDocuments {
		if doc.Required {
			names = append(names, doc.Name)
		}
	}
	return names
}

func (d CaseTypeDefinition) clone() CaseTypeDefinition {
	out := d
	out.RequiredDocuments = append([]RequiredDocument(nil), d.RequiredDocuments...)
	return out
}
