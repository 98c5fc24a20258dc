// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package supervisor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/models"
)

// recordingManager returns a fixed summary and records UpdateConfig calls.
type recordingManager struct {
	mu        sync.Mutex
	summary   evaluator.RefreshSummary
	refreshed [][]*models.PipelineConfig
	updated   []*models.PipelineConfig
	updateErr error
}

func (m *recordingManager) Refresh(configs []*models.PipelineConfig) evaluator.RefreshSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, configs)
	return m.summary
}

func (m *recordingManager) UpdateConfig(cfg *models.PipelineConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, cfg)
	return m.updateErr
}

func staticSource(configs ...*models.PipelineConfig) evaluator.ConfigSource {
	return evaluator.ConfigSourceFunc(func(context.Context) ([]*models.PipelineConfig, error) {
		return configs, nil
	})
}

func TestNewPipelineReloader(t *testing.T) {
	if _, err := NewPipelineReloader(nil, &recordingManager{}); !errors.Is(err, ErrNilConfigSource) {
		t.Errorf("expected ErrNilConfigSource, got %v", err)
	}
	if _, err := NewPipelineReloader(staticSource(), nil); !errors.Is(err, ErrNilPipelineManager) {
		t.Errorf("expected ErrNilPipelineManager, got %v", err)
	}
}

func TestPipelineReloader_UpdatesChanged(t *testing.T) {
	first := &models.PipelineConfig{UUID: "a", Schedule: "0 * * * *"}
	duplicate := &models.PipelineConfig{UUID: "a", Schedule: "5 * * * *"}
	other := &models.PipelineConfig{UUID: "b"}

	mgr := &recordingManager{summary: evaluator.RefreshSummary{
		Unchanged: []string{"a", "b"},
		Changed:   []string{"a"},
	}}
	reloader, err := NewPipelineReloader(staticSource(first, other, duplicate), mgr)
	if err != nil {
		t.Fatalf("NewPipelineReloader: %v", err)
	}

	summary, err := reloader.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !slices.Equal(summary.Changed, []string{"a"}) {
		t.Errorf("summary = %+v", summary)
	}
	if len(mgr.refreshed) != 1 || len(mgr.refreshed[0]) != 3 {
		t.Errorf("Refresh called with %v", mgr.refreshed)
	}
	if len(mgr.updated) != 1 || mgr.updated[0] != first {
		t.Errorf("UpdateConfig calls = %v, want the first config for a", mgr.updated)
	}
}

func TestPipelineReloader_SourceError(t *testing.T) {
	loadErr := errors.New("pipelines file missing")
	source := evaluator.ConfigSourceFunc(func(context.Context) ([]*models.PipelineConfig, error) {
		return nil, loadErr
	})
	mgr := &recordingManager{}
	reloader, _ := NewPipelineReloader(source, mgr)

	if _, err := reloader.Reload(context.Background()); !errors.Is(err, loadErr) {
		t.Errorf("expected load error, got %v", err)
	}
	if len(mgr.refreshed) != 0 {
		t.Error("Refresh should not run when loading fails")
	}
}

func TestPipelineReloader_JoinsUpdateErrors(t *testing.T) {
	mgr := &recordingManager{
		summary:   evaluator.RefreshSummary{Changed: []string{"a", "b"}},
		updateErr: evaluator.ErrUnknownPipeline,
	}
	reloader, _ := NewPipelineReloader(staticSource(
		&models.PipelineConfig{UUID: "a"},
		&models.PipelineConfig{UUID: "b"},
	), mgr)

	_, err := reloader.Reload(context.Background())
	if !errors.Is(err, evaluator.ErrUnknownPipeline) {
		t.Errorf("expected joined ErrUnknownPipeline, got %v", err)
	}
	if len(mgr.updated) != 2 {
		t.Errorf("expected both runners updated, got %d", len(mgr.updated))
	}
}

func TestPipelineReloader_RejectsConcurrentReload(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	source := evaluator.ConfigSourceFunc(func(context.Context) ([]*models.PipelineConfig, error) {
		close(entered)
		<-release
		return nil, nil
	})
	reloader, _ := NewPipelineReloader(source, &recordingManager{})

	done := make(chan error, 1)
	go func() {
		_, err := reloader.Reload(context.Background())
		done <- err
	}()
	<-entered

	if _, err := reloader.Reload(context.Background()); !errors.Is(err, ErrReloadAlreadyActive) {
		t.Errorf("expected ErrReloadAlreadyActive, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first reload: %v", err)
	}
}

func TestPipelineReloader_WithController(t *testing.T) {
	var mu sync.Mutex
	configs := []*models.PipelineConfig{{UUID: "a", Schedule: "0 * * * *"}}
	source := evaluator.ConfigSourceFunc(func(context.Context) ([]*models.PipelineConfig, error) {
		mu.Lock()
		defer mu.Unlock()
		return configs, nil
	})

	ctrl, err := evaluator.NewController(source, nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	reloader, _ := NewPipelineReloader(source, ctrl)

	mu.Lock()
	configs = []*models.PipelineConfig{
		{UUID: "a", Schedule: "30 * * * *"},
		{UUID: "b", Schedule: "0 * * * *"},
	}
	mu.Unlock()

	summary, err := reloader.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !slices.Equal(summary.Added, []string{"b"}) || !slices.Equal(summary.Changed, []string{"a"}) {
		t.Errorf("summary = %+v", summary)
	}
	runner, ok := ctrl.Runner("a")
	if !ok || runner.Config().Schedule != "30 * * * *" {
		t.Errorf("runner a config was not updated: %+v", runner.Config())
	}
}
