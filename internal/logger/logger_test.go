package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("pos-server", &buf)

	log.Error("order_commit_failed", "commit failed", "req-1", errors.New("boom"), map[string]interface{}{
		"order_id": 7,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "pos-server", entry["service"])
	assert.Equal(t, "order_commit_failed", entry["action"])
	assert.Equal(t, "commit failed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.EqualValues(t, 7, entry["order_id"])

	errGroup, ok := entry["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", errGroup["msg"])
}

func TestLoggerErrorWithoutErr(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("barista", &buf)

	log.Error("validation_failed", "missing name", "", nil, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasErr := entry["error"]
	assert.False(t, hasErr)
}

func TestRequestIDContext(t *testing.T) {
	id := GenerateRequestID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), id)
	assert.Equal(t, id, RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
