package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/personroster/internal/config"
)

func TestResolveBatchOptions(t *testing.T) {
	prev := cfg
	defer func() { cfg = prev }()
	cfg = &config.Config{
		Dedupe: config.DedupeConfig{BatchSize: 50, BatchPause: 100 * time.Millisecond},
	}

	tests := []struct {
		name      string
		size      int
		pause     time.Duration
		wantSize  int
		wantPause time.Duration
	}{
		{"both unset fall back to config", 0, 0, 50, 100 * time.Millisecond},
		{"flags override config", 10, 250 * time.Millisecond, 10, 250 * time.Millisecond},
		{"pause alone falls back", 10, 0, 10, 100 * time.Millisecond},
		{"size alone falls back", 0, 250 * time.Millisecond, 50, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, pause := resolveBatchOptions(tt.size, tt.pause)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantPause, pause)
		})
	}
}
