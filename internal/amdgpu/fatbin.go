package amdgpu

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/offloadkit/zhc/internal/offloadbundle"
)

// fatbinSalt is mixed into the content hash so unrelated pipelines
// never collide on the same scratch directory name, per spec §4.10
// step 2.
const fatbinSalt = "zhc-offload-bundle-v1"

// HostTriple names the host placeholder entry's triple (spec §4.9: a
// HIP fat binary must always contain a first entry with
// offload_kind=host and an empty payload).
type HostTriple struct {
	Arch, Vendor, OS, ABI string
}

// DeviceObject is one device object's contribution to the fat binary:
// its HSA target string (the entry id, V4+) and the raw code-object
// bytes.
type DeviceObject struct {
	Target string
	Code   []byte
}

// BuildFatbin assembles the offload bundle containing the host
// placeholder entry and one hipv4 entry per device object (spec §4.10
// step 1).
func BuildFatbin(host HostTriple, devices []DeviceObject, alignment uint64) ([]byte, error) {
	entries := make([]offloadbundle.Entry, 0, len(devices)+1)
	entries = append(entries, offloadbundle.HostEntry(host.Arch, host.Vendor, host.OS, host.ABI))
	for _, dev := range devices {
		if dev.Target == "" {
			return nil, fmt.Errorf("amdgpu: device object missing amdhsa.target, cannot synthesize hipv4 entry id")
		}
		entries = append(entries, offloadbundle.Entry{
			ID:      fmt.Sprintf("%s-%s", offloadbundle.KindHIPv4, dev.Target),
			Payload: dev.Code,
		})
	}
	return offloadbundle.Build(entries, alignment)
}

// ScratchDirName hashes bundle with a fixed salt and encodes the digest
// as a URL-safe base64 directory name (spec §4.10 step 2). The whole
// 32-byte SHA-256 digest is encoded; it is not truncated.
func ScratchDirName(bundle []byte) string {
	h := sha256.New()
	h.Write([]byte(fatbinSalt))
	h.Write(bundle)
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum)
}
