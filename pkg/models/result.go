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

package models

import (
	"encoding/json"
	"time"
)

// SendError carries the terminal failure of a send attempt sequence.
type SendError struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SendResult is the structured outcome of one sendData invocation. Callers
// always receive a SendResult; the pipeline never surfaces a raw error.
// Retryable is false only when the SDK was never initialized.
type SendResult struct {
	Success   bool            `json:"success"`
	Snapshot  *DeviceSnapshot `json:"data,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	Duration  time.Duration   `json:"duration"`
	Attempts  int             `json:"attempts"`
	Retryable bool            `json:"retryable"`
	Error     *SendError      `json:"error,omitempty"`
}

// NewSendError stamps a SendError with the current instant.
func NewSendError(message string) *SendError {
	return &SendError{
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
