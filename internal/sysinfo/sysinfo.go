// Package sysinfo describes the host a conversion ran on.
package sysinfo

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

type Info struct {
	Hostname string `json:"hostname,omitempty"`
	Platform string `json:"platform,omitempty"`
	CPU      string `json:"cpu,omitempty"`
	RAM      string `json:"ram,omitempty"`
}

// Collect gathers what it can; probes that fail leave their field empty.
func Collect() Info {
	var info Info
	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}
	if c, err := cpu.Info(); err == nil && len(c) > 0 {
		info.CPU = c[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	return info
}

func (i Info) String() string {
	var parts []string
	for _, p := range []string{i.Hostname, i.Platform, i.CPU, i.RAM} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "; ")
}
