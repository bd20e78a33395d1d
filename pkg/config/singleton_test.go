package config

import (
	"sync"
	"testing"
)

func TestSetGetConfig(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })

	cfg := Default()
	cfg.Server.ListenAddress = "127.0.0.1:7777"
	SetConfig(cfg)

	if got := GetConfig(); got != cfg {
		t.Errorf("GetConfig() = %p, want %p", got, cfg)
	}
	if got := MustGetConfig(); got.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("MustGetConfig().Server.ListenAddress = %q", got.Server.ListenAddress)
	}
}

func TestMustGetConfig_PanicsWhenUnset(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })
	SetConfig(nil)

	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig() did not panic")
		}
	}()
	MustGetConfig()
}

func TestReloadConfig(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })

	path := writeConfig(t, "history:\n  backend: memory\nscan:\n  history_limit: 20\n")
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if got := GetConfig().Scan.HistoryLimit; got != 20 {
		t.Errorf("HistoryLimit = %d, want 20", got)
	}

	bad := writeConfig(t, "history:\n  backend: mongo\n")
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("ReloadConfig() with invalid file succeeded")
	}
	if got := GetConfig().Scan.HistoryLimit; got != 20 {
		t.Errorf("failed reload replaced config: HistoryLimit = %d", got)
	}
}

func TestGetConfig_Concurrent(t *testing.T) {
	prev := GetConfig()
	t.Cleanup(func() { SetConfig(prev) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetConfig(Default())
		}()
		go func() {
			defer wg.Done()
			_ = GetConfig()
		}()
	}
	wg.Wait()
}
