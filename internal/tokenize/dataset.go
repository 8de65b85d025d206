package tokenize

import (
	"encoding/json"
	"fmt"
	"io"

	"doctune/pkg/types"
)

// Stats summarizes a tokenization pass.
type Stats struct {
	Records   int
	Tokens    int
	Truncated int
}

// Dataset encodes every record and truncates it to maxLen tokens.
// maxLen <= 0 disables truncation.
func Dataset(tk Tokenizer, recs []types.Record, maxLen int) ([]types.TokenizedRecord, Stats) {
	out := make([]types.TokenizedRecord, 0, len(recs))
	st := Stats{Records: len(recs)}
	for _, r := range recs {
		ids := tk.Encode(r.Text)
		if maxLen > 0 && len(ids) > maxLen {
			ids = ids[:maxLen]
			st.Truncated++
		}
		mask := make([]uint32, len(ids))
		for i := range mask {
			mask[i] = 1
		}
		st.Tokens += len(ids)
		out = append(out, types.TokenizedRecord{InputIDs: ids, AttentionMask: mask})
	}
	return out, st
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL[T any](w io.Writer, rows []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
