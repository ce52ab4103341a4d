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
	"context"
	"sync"
	"time"

	"github.com/intelvis/pulse/pkg/cache"
	"github.com/intelvis/pulse/pkg/models"
	"github.com/intelvis/pulse/pkg/normalize"
)

// networkInfo is the optimized network sub-fetch: a 30-second cache in front
// of three concurrent probes (generic connectivity, the native network
// adapter, public IP resolution). The native adapter's fields win over the
// generic check when both answer. The merge never fails; probes that error
// simply contribute nothing.
func (b *Builder) networkInfo(ctx context.Context) *models.NetworkInfo {
	if cached, ok := b.cache.Get(cache.KindNetworkInfo); ok {
		if info, isNet := cached.(*models.NetworkInfo); isNet {
			b.logger.Debug().Msg("Using cached network info")
			return info
		}
	}

	var (
		wg       sync.WaitGroup
		generic  *models.NetworkInfo
		native   *models.NetworkInfo
		publicIP string
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		defer b.recoverBranch("connectivity", nil)
		generic = b.genericConnectivity(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.recoverBranch("nativeNetwork", nil)
		native = b.nativeNetwork(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.recoverBranch("publicIp", nil)
		publicIP = b.resolver.resolve(ctx)
	}()

	wg.Wait()

	merged := generic.Merge(native)
	if merged == nil {
		merged = &models.NetworkInfo{NetworkType: models.NetworkTypeUnknown}
	}

	if publicIP != "" {
		merged.PublicIP = publicIP
	}

	merged.CapturedAt = b.now()

	b.cache.Put(cache.KindNetworkInfo, merged, networkInfoTTL)

	return merged
}

func (b *Builder) genericConnectivity(ctx context.Context) *models.NetworkInfo {
	if b.adapters.Connectivity == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.AdapterTimeout))
	defer cancel()

	info, err := b.adapters.Connectivity.CheckConnectivity(callCtx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Generic connectivity check failed")
		return nil
	}

	return info
}

func (b *Builder) nativeNetwork(ctx context.Context) *models.NetworkInfo {
	if b.adapters.Network == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.AdapterTimeout))
	defer cancel()

	raw, err := b.adapters.Network.GetNetworkInfo(callCtx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Native network adapter failed")
		return nil
	}

	return normalize.Network(raw, b.cfg.CarrierSuffixes)
}
