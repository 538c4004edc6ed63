package infra

import (
	"testing"
	"time"
)

func TestParseAgentConfig_Empty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "{}"} {
		cfg, err := ParseAgentConfig(raw)
		if err != nil {
			t.Fatalf("ParseAgentConfig(%q) error: %v", raw, err)
		}
		if cfg.ChatModel.APIKey != "" {
			t.Fatalf("expected zero config for %q", raw)
		}
	}
}

func TestParseAgentConfig_RejectsUnknownFields(t *testing.T) {
	if _, err := ParseAgentConfig(`{"chat_model":{"api_key":"k"},"nope":1}`); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := ParseAgentConfig(`{} {}`); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestGateProviderConfig_FallsBackToChatModel(t *testing.T) {
	cfg, err := ParseAgentConfig(`{
		"chat_model": {"api_key": "k", "model": "gpt-4o-mini", "base_url": "https://example.com/v1"},
		"gate_model": {"model": "gpt-4o"}
	}`)
	if err != nil {
		t.Fatalf("ParseAgentConfig error: %v", err)
	}
	pc, err := cfg.GateProviderConfig()
	if err != nil {
		t.Fatalf("GateProviderConfig error: %v", err)
	}
	if pc.OpenAI.Model != "gpt-4o" || pc.OpenAI.APIKey != "k" || pc.OpenAI.BaseURL != "https://example.com/v1" {
		t.Fatalf("unexpected gate config: %+v", pc.OpenAI)
	}

	if _, err := (AgentConfig{}).ChatProviderConfig(); err == nil {
		t.Fatalf("expected missing api key error")
	}
}

func TestTiming_Defaults(t *testing.T) {
	tm := AgentConfig{}.Timing()
	if tm.ThreadDepth != DefaultThreadDepth {
		t.Fatalf("thread depth = %d, want %d", tm.ThreadDepth, DefaultThreadDepth)
	}
	if tm.PostWeight != 2 || tm.TimelineWeight != 2 || tm.TimelineLimit != 5 {
		t.Fatalf("unexpected weights: %+v", tm)
	}
	if tm.ItemDelayMin != 60*time.Second || tm.ItemDelayMax != 180*time.Second {
		t.Fatalf("unexpected item delays: %+v", tm)
	}
	if tm.LoopDelayMin != 900*time.Second || tm.LoopDelayMax != 3600*time.Second {
		t.Fatalf("unexpected loop delays: %+v", tm)
	}

	tm = AgentConfig{
		Schedule:   ScheduleConfig{LoopDelayMinSeconds: 50, LoopDelayMaxSeconds: 10},
		ImageModel: ImageModelConfig{Percent: 250},
	}.Timing()
	if tm.LoopDelayMax != tm.LoopDelayMin {
		t.Fatalf("max delay should clamp to min: %+v", tm)
	}
	if tm.ImagePercent != 100 {
		t.Fatalf("image percent should clamp to 100, got %d", tm.ImagePercent)
	}
}

func TestResolveTimezoneLocation(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]int{
		"UTC":       0,
		"+09:00":    9 * 3600,
		"-0730":     -(7*3600 + 30*60),
		"UTC+9":     9 * 3600,
		"GMT-05:00": -5 * 3600,
		"+800":      8 * 3600,
	}
	for in, want := range cases {
		loc, err := ResolveTimezoneLocation(in)
		if err != nil {
			t.Fatalf("ResolveTimezoneLocation(%q) error: %v", in, err)
		}
		if _, off := at.In(loc).Zone(); off != want {
			t.Fatalf("ResolveTimezoneLocation(%q) offset=%d want %d", in, off, want)
		}
	}

	for _, in := range []string{"", "local"} {
		loc, err := ResolveTimezoneLocation(in)
		if err != nil || loc != time.Local {
			t.Fatalf("ResolveTimezoneLocation(%q) = %v, %v; want Local", in, loc, err)
		}
	}

	for _, bad := range []string{"+25:00", "+1:5", "Not/AZone"} {
		if _, err := ResolveTimezoneLocation(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestGateTemplate(t *testing.T) {
	for _, action := range []string{"reply", "like", "retweet", "Quote"} {
		s, err := GateTemplate(action)
		if err != nil || s == "" {
			t.Fatalf("GateTemplate(%q): %q %v", action, s, err)
		}
	}
	for _, bad := range []string{"", "follow", "../config", "reply.txt"} {
		if _, err := GateTemplate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
