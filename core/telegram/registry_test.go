package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestAddCommandValidates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddCommand(Command{Name: "/start", Description: "Start", Handler: noop}); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}
	bad := map[string]Command{
		"no slash":       {Name: "start", Description: "Start", Handler: noop},
		"bare slash":     {Name: "/", Description: "Start", Handler: noop},
		"no handler":     {Name: "/menu", Description: "Menu"},
		"no description": {Name: "/menu", Handler: noop},
		"duplicate":      {Name: "/start", Description: "Again", Handler: noop},
	}
	for name, cmd := range bad {
		if err := reg.AddCommand(cmd); err == nil {
			t.Fatalf("%s: AddCommand accepted %+v", name, cmd)
		}
	}
	if len(reg.Commands()) != 1 {
		t.Fatalf("commands = %d, want 1", len(reg.Commands()))
	}
}

func TestMenuSkipsAdminCommands(t *testing.T) {
	reg := NewRegistry()
	for _, cmd := range []Command{
		{Name: "/start", Description: "Start conversation", Handler: noop},
		{Name: "/stats", Description: "Bot statistics", Handler: noop, AdminOnly: true},
		{Name: "/restart", Description: "Start over", Handler: noop},
	} {
		if err := reg.AddCommand(cmd); err != nil {
			t.Fatalf("AddCommand %s: %v", cmd.Name, err)
		}
	}
	menu := reg.Menu()
	if len(menu) != 2 || menu[0].Text != "start" || menu[1].Text != "restart" {
		t.Fatalf("menu = %+v", menu)
	}
}

func TestCallbackLookupFallsBack(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddCallback("passportCorrect", noop); err != nil {
		t.Fatalf("AddCallback: %v", err)
	}
	if err := reg.AddCallback("passportCorrect", noop); err == nil {
		t.Fatal("duplicate callback accepted")
	}
	if err := reg.AddCallback("", noop); err == nil {
		t.Fatal("empty key accepted")
	}

	if _, ok := reg.Callback("passportCorrect"); !ok {
		t.Fatal("registered callback not found")
	}
	var hit bool
	reg.SetCallbackNotFound(func(tele.Context) error { hit = true; return nil })
	h, ok := reg.Callback("stale")
	if ok || h == nil {
		t.Fatalf("Callback(stale) = %v, %v", h, ok)
	}
	_ = h(nil)
	if !hit {
		t.Fatal("not-found handler was not returned")
	}
	if reg.CallbackCount() != 1 {
		t.Fatalf("CallbackCount = %d", reg.CallbackCount())
	}
}
