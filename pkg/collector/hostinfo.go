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

package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/intelvis/pulse/pkg/models"
)

// AppInfo carries the embedding application's identity. gopsutil can see the
// host but not the app, so these come from configuration.
type AppInfo struct {
	Version     string `json:"version"`
	BuildNumber string `json:"build_number"`
	PackageID   string `json:"package_id"`
}

// HostCollector is the built-in DeviceInfoProvider and ConnectivityProvider
// backed by gopsutil. It serves desktop and server hosts where no platform
// SDK adapter is available.
type HostCollector struct {
	app AppInfo

	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	interfaces    func(ctx context.Context) (gnet.InterfaceStatList, error)
}

// NewHostCollector creates a HostCollector for the given application identity.
func NewHostCollector(app AppInfo) *HostCollector {
	return &HostCollector{
		app:           app,
		hostInfo:      host.InfoWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		interfaces:    gnet.InterfacesWithContext,
	}
}

// GetDeviceStaticInfo implements DeviceInfoProvider from host facts.
func (c *HostCollector) GetDeviceStaticInfo(ctx context.Context) (*StaticInfo, error) {
	info, err := c.hostInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info query failed: %w", err)
	}

	static := &StaticInfo{
		Brand:        info.Platform,
		Model:        info.KernelArch,
		OSName:       info.OS,
		OSVersion:    info.PlatformVersion,
		AppVersion:   c.app.Version,
		BuildNumber:  c.app.BuildNumber,
		PackageID:    c.app.PackageID,
		Manufacturer: info.PlatformFamily,
		DeviceName:   info.Hostname,
		StableID:     info.HostID,
	}

	if vm, memErr := c.virtualMemory(ctx); memErr == nil {
		total := vm.Total
		used := vm.Used
		static.TotalMemory = &total
		static.UsedMemory = &used
	}

	return static, nil
}

// CheckConnectivity implements ConnectivityProvider by scanning host network
// interfaces for an up, non-loopback interface with an address.
func (c *HostCollector) CheckConnectivity(ctx context.Context) (*models.NetworkInfo, error) {
	ifaces, err := c.interfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("interface enumeration failed: %w", err)
	}

	connected := false
	result := &models.NetworkInfo{
		IsConnected: &connected,
		NetworkType: models.NetworkTypeUnknown,
	}

	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}

		addr := firstAddr(iface.Addrs)
		if addr == "" {
			continue
		}

		connected = true
		result.LocalIP = addr
		result.NetworkType = classifyInterface(iface.Name)

		break
	}

	return result, nil
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}

	return false
}

func firstAddr(addrs []gnet.InterfaceAddr) string {
	for _, a := range addrs {
		ip := a.Addr
		if idx := strings.IndexByte(ip, '/'); idx >= 0 {
			ip = ip[:idx]
		}

		if ip != "" {
			return ip
		}
	}

	return ""
}

// classifyInterface maps an interface name to a coarse network type. Naming
// conventions differ per OS, so unrecognized names degrade to "other".
func classifyInterface(name string) models.NetworkType {
	lower := strings.ToLower(name)

	switch {
	case strings.HasPrefix(lower, "lo"):
		return models.NetworkTypeLoopback
	case strings.HasPrefix(lower, "wl"), strings.HasPrefix(lower, "wifi"):
		return models.NetworkTypeWifi
	case strings.HasPrefix(lower, "eth"), strings.HasPrefix(lower, "en"),
		strings.HasPrefix(lower, "em"):
		return models.NetworkTypeEthernet
	case strings.HasPrefix(lower, "wwan"), strings.HasPrefix(lower, "rmnet"):
		return models.NetworkTypeCellular
	default:
		return models.NetworkTypeOther
	}
}
