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

package sdk

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelvis/pulse/pkg/models"
)

// scheduler drives periodic snapshot delivery. Tick outcomes are logged and
// discarded; a failed cycle never stops the loop.
type scheduler struct {
	interval time.Duration
	clock    Clock
	send     func(ctx context.Context) *models.SendResult
	logger   zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newScheduler(interval time.Duration, clock Clock, send func(ctx context.Context) *models.SendResult, log zerolog.Logger) *scheduler {
	return &scheduler{
		interval: interval,
		clock:    clock,
		send:     send,
		logger:   log,
		done:     make(chan struct{}),
	}
}

// start launches the tick loop. Ticks run the send inline so cycles never
// overlap.
func (s *scheduler) start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := s.clock.Ticker(s.interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", s.interval).Msg("Periodic delivery started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.Chan():
				s.tick(ctx)
			}
		}
	}()
}

func (s *scheduler) tick(ctx context.Context) {
	result := s.send(ctx)

	if result.Success {
		s.logger.Debug().Int("attempts", result.Attempts).Msg("Scheduled delivery succeeded")
		return
	}

	event := s.logger.Warn().Int("attempts", result.Attempts)
	if result.Error != nil {
		event = event.Str("error", result.Error.Message)
	}

	event.Msg("Scheduled delivery failed")
}

// stop halts the loop and waits for an in-flight cycle to finish. Safe to
// call more than once.
func (s *scheduler) stop() {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.wg.Wait()
	s.logger.Info().Msg("Periodic delivery stopped")
}
