package engine

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/config"
	"github.com/me/imagebuilder/internal/scene"
)

func testConfig() config.RenderConfig {
	cfg := config.DefaultRenderConfig()
	cfg.FrameInterval = time.Millisecond
	return cfg
}

func chainFactory(n int) builder.SceneFactory {
	return builder.SceneFactoryFunc(func() builder.Root {
		c := scene.NewCaret(scene.Block)
		for i := 1; i < n; i++ {
			c.SpawnMove("f", "b")
		}
		c.Label("No time")
		return c.Root()
	})
}

func startEngine(t *testing.T, e *Engine) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(context.Background()) }()
	t.Cleanup(func() {
		e.Stop()
		if err := <-errCh; err != nil {
			t.Errorf("Start returned %v", err)
		}
		e.Close()
	})
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Width = 0
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestEngine_RendersJobsInOrder(t *testing.T) {
	e, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startEngine(t, e)

	const jobs = 5
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		i := i
		e.Enqueue(chainFactory(i+1), builder.CallbackFunc(func(img image.Image) {
			defer wg.Done()
			if img.Bounds().Dx() != 240 || img.Bounds().Dy() != 160 {
				t.Errorf("job %d image bounds = %v", i, img.Bounds())
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for images")
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("completion order = %v", order)
		}
	}
}

func TestEngine_RootlessJobCompletes(t *testing.T) {
	e, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startEngine(t, e)

	got := make(chan image.Image, 1)
	e.Enqueue(nil, builder.CallbackFunc(func(img image.Image) { got <- img }))
	select {
	case img := <-got:
		if img == nil {
			t.Fatal("nil image")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestEngine_ListenerOption(t *testing.T) {
	var mu sync.Mutex
	var kinds []builder.EventKind
	l := builder.ListenerFunc(func(ev builder.Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})
	e, err := New(testConfig(), nil, builder.WithListener(l))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startEngine(t, e)

	done := make(chan struct{})
	e.Enqueue(chainFactory(2), builder.CallbackFunc(func(image.Image) { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) < 2 || kinds[0] != builder.EventQueued || kinds[1] != builder.EventConstructed {
		t.Errorf("events = %v", kinds)
	}
}
