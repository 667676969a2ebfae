package di

import (
	"sync"
	"sync/atomic"
	"testing"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestRegisterToken_LazySingleton(t *testing.T) {
	c := NewContainer()
	tok := NewToken[greeter]("test:greeter")

	var builds atomic.Int32
	RegisterToken(c, tok, func(sr ServiceRegistry) greeter {
		builds.Add(1)
		return english{}
	})

	if builds.Load() != 0 {
		t.Fatalf("factory ran before first Get")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := GetToken(c, tok).Greet(); got != "hello" {
				t.Errorf("Greet() = %q", got)
			}
		}()
	}
	wg.Wait()

	if n := builds.Load(); n != 1 {
		t.Errorf("factory ran %d times, want 1", n)
	}
}

func TestFactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("config", "prefix")

	tok := NewToken[string]("test:dependent")
	RegisterToken(c, tok, func(sr ServiceRegistry) string {
		return sr.Get("config").(string) + "-built"
	})

	if got := GetToken(c, tok); got != "prefix-built" {
		t.Errorf("GetToken() = %q, want %q", got, "prefix-built")
	}
}

func TestGet_UnknownPanics(t *testing.T) {
	c := NewContainer()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown service")
		}
	}()
	c.Get("missing")
}

func TestHas(t *testing.T) {
	c := NewContainer()
	c.Register("x", 1)
	if !c.Has("x") || c.Has("y") {
		t.Error("Has reported wrong membership")
	}
}
