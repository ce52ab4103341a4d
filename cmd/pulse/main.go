/*
 * Copyright 2025 Intelvis Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// pulse runs the telemetry SDK from the command line: a long-lived periodic
// delivery loop, a one-shot send, a health report or an adapter probe.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/intelvis/pulse/pkg/collector"
	"github.com/intelvis/pulse/pkg/config"
	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/sdk"
)

var errInitFailed = fmt.Errorf("session init failed, check the application id")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := pflag.String("config", "", "Path to JSON config file (PULSE_* env vars apply on top)")
	appID := pflag.String("app-id", "", "Application id, overrides config")
	command := pflag.String("command", "run", "One of: run, send, health, test-adapters")
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	if *appID != "" {
		cfg.AppID = *appID
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{Level: "info", Output: "stdout"}
	}

	lg, err := logger.New(logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	session := sdk.NewSession(cfg, collector.Adapters{}, lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *command {
	case "run":
		return runLoop(ctx, session, cfg)
	case "send":
		return sendOnce(ctx, session, cfg)
	case "health":
		return printJSON(session.HealthCheck())
	case "test-adapters":
		return printJSON(session.TestAdapters(ctx))
	default:
		return fmt.Errorf("unknown command %q", *command)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv(), nil
	}

	return config.LoadFile(path)
}

func runLoop(ctx context.Context, session *sdk.Session, cfg *config.Config) error {
	if !session.Init(cfg.AppID, cfg.Contact) {
		return errInitFailed
	}

	<-ctx.Done()
	session.StopSendingData()

	return nil
}

func sendOnce(ctx context.Context, session *sdk.Session, cfg *config.Config) error {
	if !session.Init(cfg.AppID, cfg.Contact) {
		return errInitFailed
	}

	// Cancel the scheduler and the background init delivery; the one-shot
	// send below is the only delivery this command should make.
	session.StopSendingData()

	result := session.SendData(ctx, nil)
	if err := printJSON(result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("delivery failed after %d attempts", result.Attempts)
	}

	return nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
