package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/types"
)

func TestCreateJSONResponse(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		want string
	}{
		{name: "map", data: map[string]interface{}{"count": 42}, want: `{"count":42}`},
		{name: "scalar value", data: map[string]types.Scalar{"v": types.BoolValue(true)}, want: `{"v":true}`},
		{name: "string", data: "simple", want: `"simple"`},
		{name: "nil", data: nil, want: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := createJSONResponse(tt.data)
			require.NoError(t, err)
			assert.False(t, result.IsError)
			assert.JSONEq(t, tt.want, resultText(result))
		})
	}

	_, err := createJSONResponse(map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestCreateErrorResponse(t *testing.T) {
	result, err := createErrorResponse("sync_now", errors.New("disk full"))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(result)), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "disk full", body["error"])
	assert.Equal(t, "sync_now", body["operation"])
}

func TestCreateSmartErrorResponse(t *testing.T) {
	err := syncerrors.NewIndexError("get", "common.okk", syncerrors.ErrNotFound)
	result, rerr := createSmartErrorResponse(ToolGetTranslation, err, map[string]interface{}{
		"did_you_mean": []string{"common.ok"},
	})
	require.NoError(t, rerr)
	assert.True(t, result.IsError)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(result)), &body))
	assert.Contains(t, body["suggestions"], "Did you mean: common.ok")
	assert.NotEmpty(t, body["help"])
	assert.Contains(t, body["related_operations"], ToolSearchTranslation)
}

func TestGenerateErrorSuggestions(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		want      string
	}{
		{
			name:      "invalid key path",
			operation: ToolUpdateTranslation,
			err:       fmt.Errorf("%w: %q has consecutive dots", syncerrors.ErrInvalidKeyPath, "a..b"),
			want:      "Key paths are dot-separated segments like 'common.buttons.save'",
		},
		{
			name:      "non-scalar value",
			operation: ToolUpdateTranslation,
			err:       fmt.Errorf("invalid parameters: %w", types.ErrInvalidScalar),
			want:      "Values must be a string, number or boolean; objects, arrays and null are not translations",
		},
		{
			name:      "structural conflict",
			operation: ToolSyncNow,
			err:       syncerrors.NewSyncError("en", "en.json", syncerrors.ErrStructuralConflict),
			want:      "A parent of this key already holds a value in the file; rename one of the keys",
		},
		{
			name:      "rejected batch",
			operation: ToolBatchUpdate,
			err:       errors.New("batch rejected"),
			want:      "No operation was applied; fix the failing operation and resend the whole batch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, generateErrorSuggestions(tt.operation, tt.err, nil), tt.want)
		})
	}

	assert.Empty(t, generateErrorSuggestions(ToolGetStats, errors.New("other"), nil))
}

func TestAddWarningsToResponse(t *testing.T) {
	result, err := createResponseWithWarnings(map[string]interface{}{"ok": true}, []string{"w1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true, "warnings": ["w1"]}`, resultText(result))

	// no warnings leaves the body alone
	result, err = createResponseWithWarnings(map[string]interface{}{"ok": true}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, resultText(result))

	plain := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "done"}}}
	addWarningsToResponse(plain, []string{"w1", "w2"})
	assert.Equal(t, "done\n\nWarnings:\n- w1\n- w2\n", resultText(plain))

	addWarningsToResponse(nil, []string{"w"})
}

func TestDecodeParams(t *testing.T) {
	var p SearchTranslationParams
	unknown, err := decodeParams([]byte(`{"query": "ok", "zeta": 1, "alpha": "x"}`), &p)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Query)
	assert.Equal(t, []UnknownField{
		{Name: "alpha", Value: "x"},
		{Name: "zeta", Value: float64(1)},
	}, unknown)

	var none NoParams
	unknown, err = decodeParams(nil, &none)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	unknown, err = decodeParams([]byte("null"), &none)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	_, err = decodeParams([]byte(`{"query": 5}`), &p)
	assert.Error(t, err)

	var up UpdateTranslationParams
	_, err = decodeParams([]byte(`{"key": "a", "language": "en", "value": [1]}`), &up)
	assert.ErrorIs(t, err, types.ErrInvalidScalar)
}

func TestJSONFieldNames(t *testing.T) {
	names := jsonFieldNames(&ValidateStructureParams{})
	assert.Equal(t, map[string]struct{}{"base_language": {}, "auto_fix": {}}, names)
	assert.Empty(t, jsonFieldNames(42))
}
