package buildgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/offloadkit/zhc/internal/amdgpu"
)

// OffloadLibraryStep assembles every platform's device object into one
// HIP fat binary, wraps it in a host-linkable object, and produces the
// final artifact (spec §4.9, §4.10, §6's offloadLibrary() constructor
// with its addKernels/setHostTarget builder methods).
type OffloadLibraryStep struct {
	HostCompiler string
	ScratchRoot  string
	OutputPath   string
	Alignment    uint64

	devices []*DeviceObjectStep
	host    amdgpu.HostTriple

	// BundlePath and ObjectPath are populated by Make on success.
	BundlePath string
	ObjectPath string
}

// NewOffloadLibraryStep returns an empty builder; chain AddKernels and
// SetHostTarget before handing the step to a Graph.
func NewOffloadLibraryStep(hostCompiler, scratchRoot, outputPath string) *OffloadLibraryStep {
	return &OffloadLibraryStep{
		HostCompiler: hostCompiler,
		ScratchRoot:  scratchRoot,
		OutputPath:   outputPath,
		Alignment:    amdgpu.WrapperAlignment,
	}
}

// AddKernels registers one platform's compiled device object as a
// dependency and as a source of hipv4 entries for the fat binary.
func (s *OffloadLibraryStep) AddKernels(dev *DeviceObjectStep) *OffloadLibraryStep {
	s.devices = append(s.devices, dev)
	return s
}

// SetHostTarget records the host triple the placeholder host entry
// names (spec §4.9).
func (s *OffloadLibraryStep) SetHostTarget(host amdgpu.HostTriple) *OffloadLibraryStep {
	s.host = host
	return s
}

func (s *OffloadLibraryStep) ID() string { return "offload-library:" + s.OutputPath }

func (s *OffloadLibraryStep) Deps() []Step {
	out := make([]Step, len(s.devices))
	for i, d := range s.devices {
		out[i] = d
	}
	return out
}

func (s *OffloadLibraryStep) Make(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.devices) == 0 {
		return fmt.Errorf("offloadLibrary: no device objects registered via addKernels")
	}

	devs := make([]amdgpu.DeviceObject, len(s.devices))
	for i, d := range s.devices {
		devs[i] = amdgpu.DeviceObject{Target: d.Target, Code: d.Code}
	}
	bundle, err := amdgpu.BuildFatbin(s.host, devs, s.Alignment)
	if err != nil {
		return fmt.Errorf("offloadLibrary: %w", err)
	}

	scratch := filepath.Join(s.ScratchRoot, amdgpu.ScratchDirName(bundle))
	if err := EnsureDir(scratch); err != nil {
		return fmt.Errorf("offloadLibrary: %w", err)
	}
	bundlePath := filepath.Join(scratch, "offload_bundle.hipfb")
	if err := os.WriteFile(bundlePath, bundle, 0o644); err != nil {
		return fmt.Errorf("offloadLibrary: writing fat binary: %w", err)
	}

	if err := amdgpu.CompileWrapper(ctx, s.HostCompiler, bundlePath, scratch, s.OutputPath); err != nil {
		return fmt.Errorf("offloadLibrary: %w", err)
	}

	s.BundlePath = bundlePath
	s.ObjectPath = s.OutputPath
	return nil
}
