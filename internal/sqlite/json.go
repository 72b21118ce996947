package sqlite

// Record formats of the JSONL data files.

// itemJSON is one line of items.jsonl.
type itemJSON struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// attributeJSON is one line of item_attributes.jsonl. Value holds the
// attribute's encoded JSON as a string.
type attributeJSON struct {
	ItemID int64  `json:"item_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// optionJSON is one line of options.jsonl.
type optionJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const (
	itemsFile      = "items.jsonl"
	attributesFile = "item_attributes.jsonl"
	optionsFile    = "options.jsonl"
)

// dataFiles lists every JSONL file the backend owns.
var dataFiles = []string{itemsFile, attributesFile, optionsFile}
