package query

import (
	"fmt"

	"f1agent/internal/ergast"
)

// Normalize returns r with an answer that is always a JSON object. Any
// other answer is wrapped as {"message": <answer as text>}. Normalizing a
// normalized result returns it unchanged.
func Normalize(r ergast.Result) ergast.Result {
	if _, ok := r.Answer.(map[string]any); ok {
		return r
	}
	r.Answer = map[string]any{"message": fmt.Sprint(r.Answer)}
	return r
}
