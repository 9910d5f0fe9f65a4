package core

// CheckModel identifies an AI-text detection model
type CheckModel string

const (
	CheckModelClassification CheckModel = "GigaCheckClassification"
	CheckModelDetection      CheckModel = "GigaCheckDetection"
)

// DefaultCheckModel is used when a check names no model.
const DefaultCheckModel = CheckModelDetection

// Category is the verdict of a text check
type Category string

const (
	// CategoryAI means the text was generated by a model
	CategoryAI Category = "ai"
	// CategoryHuman means the text was written by a person
	CategoryHuman Category = "human"
	// CategoryMixed means the text contains both
	CategoryMixed Category = "mixed"
)

// CheckRequest asks whether Input was machine generated.
// The service only checks Russian text of at least 20 words.
type CheckRequest struct {
	Input string     `json:"input"`
	Model CheckModel `json:"model"`
}

// CheckResponse is the verdict of the ai/check endpoint.
// AIIntervals are [start, end) character offsets of generated fragments.
type CheckResponse struct {
	Category    Category `json:"category"`
	Characters  int      `json:"characters"`
	Tokens      int      `json:"tokens"`
	AIIntervals [][2]int `json:"ai_intervals"`
}
