package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
)

func TestWatchConfig(t *testing.T) {
	cfg := watchConfig(config.DataConfig{
		WatchDir:       "/data",
		SyncBasePath:   "/data/Planilha1.xlsx",
		SyncUpdatePath: "/data/Planilha2.xlsx",
		SyncOutputPath: "/data/Desligamentos.xlsx",
	})

	assert.Equal(t, "/data", cfg.Dir)
	assert.Equal(t, []string{"Planilha1.xlsx", "Planilha2.xlsx"}, cfg.Files)
	assert.Equal(t, []string{"/data/Desligamentos.xlsx"}, cfg.Ignore)
}

func TestWatchConfig_NoOutput(t *testing.T) {
	cfg := watchConfig(config.DataConfig{WatchDir: "/data", SyncUpdatePath: "/data/Planilha2.xlsx"})
	assert.Equal(t, []string{"Planilha2.xlsx"}, cfg.Files)
	assert.Empty(t, cfg.Ignore)
}
