package types

// Record is one raw training example. It is the row shape of the tabular
// dataset handed to the trainer and the line shape of JSONL inputs.
type Record struct {
	// Raw document text.
	// example: Quarterly report for Q3...
	Text string `json:"text" example:"Quarterly report for Q3..."`
}

// Document is a text file read from a documents directory.
type Document struct {
	// Base file name, used as the section heading in system prompts.
	// example: handbook.md
	Name string `json:"name" example:"handbook.md"`
	// Absolute path to the file on disk.
	// example: /home/user/docs/handbook.md
	Path string `json:"path" example:"/home/user/docs/handbook.md"`
	// File contents decoded as UTF-8.
	Text string `json:"text"`
}

// TokenizedRecord is a Record after tokenization and truncation.
type TokenizedRecord struct {
	InputIDs      []uint32 `json:"input_ids"`
	AttentionMask []uint32 `json:"attention_mask"`
}
