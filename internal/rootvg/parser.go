// Package rootvg inspects the rootvg of a VIOS and decides whether an
// alternate disk copy is safe: mirroring layout, stale partitions, and
// the sizes the disk selector needs.
package rootvg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MirrorEntry is one logical partition mapping from lsvg -M output.
type MirrorEntry struct {
	Disk  string
	Copy  int
	Stale bool
}

var (
	// hdisk8:255      hd1:99:2        stale
	mirrorLine = regexp.MustCompile(`^(\S+):\d+\s+\S+:\d+:(\d+)(\s+stale)?$`)
	// hdisk4:453      hd1:101
	singleLine = regexp.MustCompile(`^(\S+):\d+\s+\S+:\d+(\s+stale)?$`)
)

// ParseMirrorLayout parses lsvg -M output into mirror entries. Free PP
// range lines like "hdisk4:512-639" carry no logical partition and are
// skipped.
func ParseMirrorLayout(output string) []MirrorEntry {
	var entries []MirrorEntry
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if m := mirrorLine.FindStringSubmatch(line); m != nil {
			copyNum, _ := strconv.Atoi(m[2])
			entries = append(entries, MirrorEntry{Disk: m[1], Copy: copyNum, Stale: m[3] != ""})
			continue
		}
		if m := singleLine.FindStringSubmatch(line); m != nil {
			entries = append(entries, MirrorEntry{Disk: m[1], Copy: 1, Stale: m[2] != ""})
		}
	}
	return entries
}

var pvLine = regexp.MustCompile(`^(\S+)\s+\S+\s+(\d+)\s+\d+\s+\S+`)

// ParsePhysicalVolumes parses lsvg -p output into a disk to total-PP
// count map.
func ParsePhysicalVolumes(output string) map[string]int {
	pvs := make(map[string]int)
	for _, line := range strings.Split(output, "\n") {
		if m := pvLine.FindStringSubmatch(strings.TrimRight(line, " \t\r")); m != nil {
			pps, _ := strconv.Atoi(m[2])
			pvs[m[1]] = pps
		}
	}
	return pvs
}

// VGStats holds the size figures scraped from plain lsvg output.
type VGStats struct {
	PPSizeMB int // PP SIZE
	TotalMB  int // TOTAL PPs megabytes figure
}

var (
	totalPPsRe = regexp.MustCompile(`TOTAL PPs:\s+\d+\s+\((\d+)\s+megabytes\)`)
	ppSizeRe   = regexp.MustCompile(`PP SIZE:\s+(\d+)\s+megabyte\(s\)`)
)

// ParseVGStats scrapes PP size and total size from lsvg output.
func ParseVGStats(output string) (VGStats, error) {
	var stats VGStats
	for _, line := range strings.Split(output, "\n") {
		if m := totalPPsRe.FindStringSubmatch(line); m != nil {
			stats.TotalMB, _ = strconv.Atoi(m[1])
			continue
		}
		if m := ppSizeRe.FindStringSubmatch(line); m != nil {
			stats.PPSizeMB, _ = strconv.Atoi(m[1])
		}
	}
	if stats.PPSizeMB <= 0 {
		return stats, fmt.Errorf("no PP SIZE in lsvg output")
	}
	return stats, nil
}
