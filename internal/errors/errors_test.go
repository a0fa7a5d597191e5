package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError(t *testing.T) {
	base := fmt.Errorf("train.csv: no such file")
	err := E(KindInput, "dataset.build", base)

	assert.Equal(t, "dataset.build: train.csv: no such file", err.Error())
	assert.Equal(t, KindInput, KindOf(err))
	assert.True(t, IsKind(err, KindInput))
	assert.False(t, IsKind(err, KindConfig))
}

func TestKindOfWrapped(t *testing.T) {
	err := E(KindArtifact, "predict.load", fmt.Errorf("model missing"))
	wrapped := fmt.Errorf("run failed: %w", err)

	assert.Equal(t, KindArtifact, KindOf(wrapped))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain error")))
}

func TestAPIErrorFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"config error", Ef(KindConfig, "config.load", "horizon must be positive"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"input error", Ef(KindInput, "dataset.build", "missing column"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"artifact error", Ef(KindArtifact, "predict.load", "no model"), http.StatusNotFound, "NOT_FOUND"},
		{"data error", Ef(KindData, "train.split", "entity has no training rows"), http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := APIErrorFrom(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}
