package config

import "testing"

func TestValidate_Valid(t *testing.T) {
	cfg := &ServerConfig{Transport: TransportStdio, LogLevel: "info"}
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidTransport(t *testing.T) {
	cfg := &ServerConfig{Transport: "sse", LogLevel: "info"}
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an invalid transport")
	}
}

func TestValidate_HTTPRequiresValidPort(t *testing.T) {
	cfg := &ServerConfig{Transport: TransportHTTP, Port: 0, LogLevel: "info"}
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an out-of-range port")
	}

	cfg.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for a port above 65535")
	}
}

func TestValidate_StdioIgnoresPort(t *testing.T) {
	cfg := &ServerConfig{Transport: TransportStdio, Port: 0, LogLevel: "info"}
	if err := Validate(cfg); err != nil {
		t.Errorf("stdio transport should not validate port, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &ServerConfig{Transport: TransportStdio, LogLevel: "verbose"}
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an invalid log level")
	}
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	cfg := &ServerConfig{Transport: "bogus", LogLevel: "bogus"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 accumulated errors, got %d: %v", len(errs), errs)
	}
}
