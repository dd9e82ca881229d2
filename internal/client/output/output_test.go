package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/code-id-registry/internal/models"
)

func TestWriteRegistrations(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	require.NoError(t, WriteRegistrations(&buf, []*models.Registration{
		{ContractName: "cw20", Version: "0.0.1", ChainID: "juno-1", CodeID: 7, Checksum: "aa"},
		{ContractName: "cw20", Version: "0.0.10", ChainID: "juno-1", CodeID: 12, Checksum: "bb"},
	}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "CODE ID")
	assert.Contains(t, string(lines[2]), "0.0.10")
	assert.Contains(t, string(lines[2]), "12")
}

func TestWriteRegistration(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	require.NoError(t, WriteRegistration(&buf, &models.Registration{ContractName: "cw20", Version: "1", ChainID: "juno-1", CodeID: 3, Checksum: "cc"}))
	assert.Contains(t, buf.String(), "Code ID:")
	assert.Contains(t, buf.String(), "3")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]string{"admin": "alice"}, nil))
	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil, errors.New("boom")))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "boom", resp["error"])
}
