package config

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func decode(t *testing.T, text string) Config {
	t.Helper()
	var conf Config
	if _, err := toml.Decode(text, &conf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return conf
}

func TestApplyConfigSelectsDefaultProfile(t *testing.T) {
	conf := decode(t, `
default = "a"

[[profile]]
name = "a"
transport = "greaseweazle"
port = "/dev/ttyACM0"
tick_cell = 22
cache_capacity = 18
`)
	if err := applyConfig(conf); err != nil {
		t.Fatalf("applyConfig: %v", err)
	}
	if ProfileName != "a" || Transport != "greaseweazle" || Port != "/dev/ttyACM0" {
		t.Fatalf("unexpected globals: %+v", conf)
	}
}

func TestApplyConfigRejectsMissingDefault(t *testing.T) {
	conf := decode(t, `
[[profile]]
name = "a"
transport = "image"
image_path = "x.img"
tick_cell = 22
cache_capacity = 18
`)
	if err := applyConfig(conf); err == nil {
		t.Fatal("expected error for missing default")
	}
}

func TestApplyConfigRejectsUnknownTransport(t *testing.T) {
	conf := decode(t, `
default = "a"

[[profile]]
name = "a"
transport = "carrier-pigeon"
tick_cell = 22
cache_capacity = 18
`)
	if err := applyConfig(conf); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestApplyConfigRejectsImageProfileWithoutPath(t *testing.T) {
	conf := decode(t, `
default = "a"

[[profile]]
name = "a"
transport = "image"
tick_cell = 22
cache_capacity = 18
`)
	if err := applyConfig(conf); err == nil {
		t.Fatal("expected error for image profile missing image_path")
	}
}
