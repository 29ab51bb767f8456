// Package preflight warns about hosts that cannot comfortably run or hold a
// modpack. Findings are advisory.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Gojibodev/keklauncher/internal/logging"
)

type Report struct {
	TotalRAM    uint64   `json:"totalRam"`
	RequiredRAM uint64   `json:"requiredRam"`
	FreeDisk    uint64   `json:"freeDisk"`
	NeededDisk  uint64   `json:"neededDisk"`
	Warnings    []string `json:"warnings"`
}

func (r Report) OK() bool {
	return len(r.Warnings) == 0
}

type Checker struct {
	VirtualMemory func() (*mem.VirtualMemoryStat, error)
	DiskUsage     func(path string) (*disk.UsageStat, error)
}

func New() *Checker {
	return &Checker{
		VirtualMemory: mem.VirtualMemory,
		DiskUsage:     disk.Usage,
	}
}

// ParseSize reads sizes like "4G", "4096M", "512MB" or "1.5g". A bare number
// is taken as gigabytes, matching how -Xmx style values are usually written
// in modpack metadata.
func ParseSize(s string) (uint64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "B")
	if v == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := float64(1 << 30)
	switch v[len(v)-1] {
	case 'K':
		mult, v = 1<<10, v[:len(v)-1]
	case 'M':
		mult, v = 1<<20, v[:len(v)-1]
	case 'G':
		mult, v = 1<<30, v[:len(v)-1]
	case 'T':
		mult, v = 1<<40, v[:len(v)-1]
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return uint64(n * mult), nil
}

// CheckMemory compares the declared requirement with installed RAM.
func (c *Checker) CheckMemory(report *Report, required string) {
	if strings.TrimSpace(required) == "" {
		return
	}
	need, err := ParseSize(required)
	if err != nil {
		report.Warnings = append(report.Warnings, "unreadable RAM requirement "+strconv.Quote(required))
		return
	}
	report.RequiredRAM = need
	vm, err := c.VirtualMemory()
	if err != nil {
		logging.GlobalLogger.Warn("Could not read system memory: " + err.Error())
		return
	}
	report.TotalRAM = vm.Total
	if vm.Total < need {
		report.Warnings = append(report.Warnings, fmt.Sprintf("modpack wants %s of RAM but the system has %s", HumanBytes(need), HumanBytes(vm.Total)))
	}
}

// CheckDisk compares needed bytes with the free space under dir, walking up
// to the nearest existing ancestor.
func (c *Checker) CheckDisk(report *Report, dir string, needed int64) {
	if needed <= 0 {
		return
	}
	report.NeededDisk = uint64(needed)
	probe := existingAncestor(dir)
	usage, err := c.DiskUsage(probe)
	if err != nil {
		logging.GlobalLogger.Warn("Could not read disk usage for " + probe + ": " + err.Error())
		return
	}
	report.FreeDisk = usage.Free
	if usage.Free < uint64(needed) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s needs %s but only %s is free", dir, HumanBytes(uint64(needed)), HumanBytes(usage.Free)))
	}
}

// Check runs both checks.
func (c *Checker) Check(requiredRAM, dir string, needed int64) Report {
	report := Report{Warnings: []string{}}
	c.CheckMemory(&report, requiredRAM)
	c.CheckDisk(&report, dir, needed)
	for _, w := range report.Warnings {
		logging.GlobalLogger.Warn("Preflight: " + w)
	}
	return report
}

func existingAncestor(dir string) string {
	cur := filepath.Clean(dir)
	for {
		if _, err := os.Stat(cur); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return cur
		}
		cur = parent
	}
}

func HumanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatUint(n, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
