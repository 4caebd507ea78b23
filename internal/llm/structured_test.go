package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Cost     float64 `json:"cost"`
}

type testPayload struct {
	Items []testItem `json:"items"`
}

func TestExtractJSON_CleanJSON(t *testing.T) {
	raw := `{"items":[{"name":"Design","duration":8,"cost":20000}]}`
	result, err := ExtractJSON[testPayload](raw, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Design", result.Items[0].Name)
	assert.Equal(t, 20000.0, result.Items[0].Cost)
}

func TestExtractJSON_FencedWithProse(t *testing.T) {
	raw := "Here is the breakdown:\n```json\n{\"items\":[{\"name\":\"Build\",\"duration\":40,\"cost\":120000}]}\n```\nGood luck!"
	result, err := ExtractJSON[testPayload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Build", result.Items[0].Name)
}

func TestExtractJSON_TopLevelArray(t *testing.T) {
	raw := `Sure: [{"name":"QA","duration":.5,"cost":900}] done`
	result, err := ExtractJSON[[]testItem](raw, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 0.5, result[0].Duration)
}

func TestExtractJSON_RepairsModelHabits(t *testing.T) {
	raw := `{
		// planning
		"items": [
			{"name": "Design // mockups", "duration": 8, "cost": 20000,},
			/* build phase */
			{"name": "Build", "duration": -.25, "cost": 1},
		],
	}`
	result, err := ExtractJSON[testPayload](raw, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Design // mockups", result.Items[0].Name, "comment markers inside strings kept")
	assert.Equal(t, -0.25, result.Items[1].Duration)
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"items":[{"name":"Escape \"}\" test","duration":1,"cost":2}]}`
	result, err := ExtractJSON[testPayload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, `Escape "}" test`, result.Items[0].Name)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON[testPayload]("I cannot estimate that.", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_InvalidJSON(t *testing.T) {
	_, err := ExtractJSON[testPayload](`{"items": broken}`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_Unbalanced(t *testing.T) {
	_, err := ExtractJSON[testPayload](`{"items": [`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_Validation(t *testing.T) {
	nonEmpty := func(p testPayload) error {
		if len(p.Items) == 0 {
			return fmt.Errorf("no items")
		}
		return nil
	}

	_, err := ExtractJSON(`{"items":[]}`, nonEmpty)
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Contains(t, err.Error(), "validation failed")

	result, err := ExtractJSON(`{"items":[{"name":"Deploy","duration":2,"cost":3000}]}`, nonEmpty)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}
