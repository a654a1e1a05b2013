package btrfs

import (
	"bufio"
	"strings"
)

// PoolFigures holds the raw size tokens reported for one allocation pool.
// The tokens stay unparsed at this layer so that a single bad token
// degrades that pool only, once the evaluator normalizes it.
type PoolFigures struct {
	Total string
	Used  string
}

// AllocationReport is the parsed form of `btrfs filesystem df` output. A
// nil pool means the report carried no usable line for that kind.
type AllocationReport struct {
	Data     *PoolFigures
	Metadata *PoolFigures
}

// ParseReport extracts per-pool figures from `btrfs filesystem df` output.
//
// The report is one record per line:
//
//	<Kind>[, <profile>]: total=<size>, used=<size>
//
// for example:
//
//	Data, single: total=200.00GiB, used=140.00GiB
//	System, DUP: total=32.00MiB, used=16.00KiB
//	Metadata, DUP: total=20.00GiB, used=15.00GiB
//	GlobalReserve, single: total=512.00MiB, used=0.00B
//
// Lines that do not match are ignored. When a kind appears more than once
// (a profile conversion in progress) the first line wins.
func ParseReport(out string) AllocationReport {
	var rep AllocationReport
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		kind, fig, ok := parseReportLine(sc.Text())
		if !ok {
			continue
		}
		switch kind {
		case "Data":
			if rep.Data == nil {
				rep.Data = fig
			}
		case "Metadata":
			if rep.Metadata == nil {
				rep.Metadata = fig
			}
		}
	}
	return rep
}

func parseReportLine(line string) (string, *PoolFigures, bool) {
	head, rest, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return "", nil, false
	}
	kind, _, _ := strings.Cut(head, ",")
	kind = strings.TrimSpace(kind)

	var fig PoolFigures
	for _, field := range strings.Split(rest, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			continue
		}
		switch key {
		case "total":
			fig.Total = val
		case "used":
			fig.Used = val
		}
	}
	if fig.Total == "" || fig.Used == "" {
		return "", nil, false
	}
	return kind, &fig, true
}
