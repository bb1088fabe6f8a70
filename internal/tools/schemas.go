package tools

// KnowledgeSearchInput defines input for the search_medical_knowledge tool.
type KnowledgeSearchInput struct {
	Query string `json:"query" jsonschema_description:"The medical question or topic to search for"`
	TopK  int    `json:"topK,omitempty" jsonschema_description:"Maximum results to return (1-10, default: 7)"`
}

// WebSearchInput defines input for the medical_web_search tool.
type WebSearchInput struct {
	Query string `json:"query" jsonschema_description:"The medical topic to search trusted health sites for"`
}

// FetchPageInput defines input for the fetch_medical_page tool.
type FetchPageInput struct {
	URL string `json:"url" jsonschema_description:"The article URL to fetch and extract readable text from"`
}

// PredictInput defines input for the predict_conditions tool.
type PredictInput struct {
	Symptoms       string `json:"symptoms" jsonschema_description:"Comma-separated symptoms, e.g. 'fever, headache, nausea'"`
	Duration       string `json:"duration" jsonschema_description:"How long the symptoms have lasted, e.g. '3 days', '1 week'"`
	Severity       string `json:"severity" jsonschema_description:"How severe the symptoms feel, e.g. 'mild', 'moderate', 'severe', or a 1-10 rating"`
	AdditionalInfo string `json:"additionalInfo,omitempty" jsonschema_description:"Anything else relevant: recent travel, foods eaten, existing conditions"`
}
