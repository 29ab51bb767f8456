package preflight

import (
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

func fakeChecker(totalRAM, freeDisk uint64) (*Checker, *string) {
	probed := new(string)
	return &Checker{
		VirtualMemory: func() (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: totalRAM}, nil
		},
		DiskUsage: func(path string) (*disk.UsageStat, error) {
			*probed = path
			return &disk.UsageStat{Free: freeDisk}, nil
		},
	}, probed
}

func TestParseSize(t *testing.T) {
	cases := map[string]uint64{
		"4G":     4 << 30,
		"4096M":  4 << 30,
		"512MB":  512 << 20,
		"1.5g":   3 << 29,
		"6":      6 << 30,
		" 2 GB ": 2 << 30,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil || got != want {
			t.Errorf("ParseSize(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "lots", "-1G"} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) should fail", bad)
		}
	}
}

func TestCheckWarnsOnShortfall(t *testing.T) {
	c, probed := fakeChecker(2<<30, 100)
	dir := filepath.Join(t.TempDir(), "not", "yet", "created")
	report := c.Check("4G", dir, 1000)
	if report.OK() || len(report.Warnings) != 2 {
		t.Fatalf("expected two warnings, got %v", report.Warnings)
	}
	if *probed == dir {
		t.Fatal("disk usage must be probed on an existing ancestor")
	}
}

func TestCheckPassesWithHeadroom(t *testing.T) {
	c, _ := fakeChecker(16<<30, 10<<30)
	report := c.Check("4G", t.TempDir(), 1<<20)
	if !report.OK() {
		t.Fatalf("unexpected warnings %v", report.Warnings)
	}
	if report.RequiredRAM != 4<<30 || report.TotalRAM != 16<<30 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestHumanBytes(t *testing.T) {
	if HumanBytes(512) != "512 B" || HumanBytes(1536) != "1.5 KiB" || HumanBytes(4<<30) != "4.0 GiB" {
		t.Fatalf("unexpected renderings %s %s %s", HumanBytes(512), HumanBytes(1536), HumanBytes(4<<30))
	}
}
