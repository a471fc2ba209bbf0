package offloadbundle

import (
	"fmt"
	"strings"
)

// OffloadKind is the first component of an entry id.
type OffloadKind string

const (
	KindHost    OffloadKind = "host"
	KindHIP     OffloadKind = "hip"
	KindHIPv4   OffloadKind = "hipv4"
	KindOpenMP  OffloadKind = "openmp"
)

// TripleVendor picks "amd" for HSA/PAL targets and "unknown" otherwise,
// per spec §4.9.
func TripleVendor(isHSAOrPAL bool) string {
	if isHSAOrPAL {
		return "amd"
	}
	return "unknown"
}

// EntryID renders the entry-id format:
//
//	<offload-kind>-<arch>-<vendor>-<os>[-<abi>]-<cpu>[: <feat>+]*
//
// abi may be empty, in which case it is omitted along with its
// separating hyphen. features lists only the explicitly-enabled LLVM
// feature names, rendered ": <feat>+" repeated once per feature after
// the cpu component (matching LLVM's target-id convention).
func EntryID(kind OffloadKind, arch, vendor, os, abi, cpu string, features []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s-%s-%s-%s", kind, arch, vendor, os)
	if abi != "" {
		b.WriteByte('-')
		b.WriteString(abi)
	}
	b.WriteByte('-')
	b.WriteString(cpu)
	for _, f := range features {
		b.WriteString(":")
		b.WriteByte(' ')
		b.WriteString(f)
		b.WriteByte('+')
	}
	return b.String()
}

// HostEntryID renders the host triple id (offload_kind=host has no cpu
// component): <kind>-<arch>-<vendor>-<os>[-<abi>].
func HostEntryID(arch, vendor, os, abi string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s-%s-%s-%s", KindHost, arch, vendor, os)
	if abi != "" {
		b.WriteByte('-')
		b.WriteString(abi)
	}
	return b.String()
}

// HostEntry builds the mandatory placeholder entry every HIP fat binary
// must contain: offload_kind=host, empty payload, per spec §4.9.
func HostEntry(arch, vendor, os, abi string) Entry {
	return Entry{ID: HostEntryID(arch, vendor, os, abi), Payload: nil}
}
