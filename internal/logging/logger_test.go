package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"barangay/backend/internal/logging"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		ServiceName: "barangay-backend",
		Environment: "test",
		Output:      &buf,
	})

	logger.Info().Str("complaint_id", "c-1").Msg("complaint submitted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "barangay-backend", entry["service_name"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "c-1", entry["complaint_id"])
	assert.Equal(t, "complaint submitted", entry["message"])
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("dropped")

	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logging.ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, logging.ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel(""))
}
