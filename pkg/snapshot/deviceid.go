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

package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fallbackDeviceID builds a process-stable substitute id when the platform
// cannot supply a real unique identifier. The embedded platform, timestamp
// and random suffix keep collisions across installs unlikely while staying
// recognizable as synthetic.
func fallbackDeviceID(platform string, now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("fallback_%s_%d_%s", platform, now.UnixMilli(), suffix)
}

// errorDeviceID marks a snapshot produced by a total collection failure.
func errorDeviceID(platform string, now time.Time) string {
	return fmt.Sprintf("error_%s_%d", platform, now.UnixMilli())
}
