package buildgraph

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/offloadkit/zhc/internal/amdgpu"
	"github.com/offloadkit/zhc/internal/elfreader"
	"github.com/offloadkit/zhc/internal/optionsmodule"
	"github.com/offloadkit/zhc/internal/zhcerr"
)

// DeviceObjectStep compiles one device source file against one
// platform's overload set, producing a device object and
// cross-referencing its exported kernels against what the host
// requires (spec §4.8, §6's deviceObject(source, platform, overloads)
// constructor).
type DeviceObjectStep struct {
	SourcePath    string
	Platform      string
	DeviceCompiler string // e.g. "amdclang++", invoked as a subprocess
	ScratchRoot   string

	overloads *ExtractOverloadsStep

	// ObjectPath, Code, Target, and Matched are populated by Make on
	// success.
	ObjectPath string
	Code       []byte
	Target     string
	Matched    []amdgpu.Match
}

// NewDeviceObjectStep wires overloads as this step's dependency; the
// host object must be fully scanned before the options module can be
// rendered (spec §5's ordering guarantee: ExtractOverloads.make
// happens-before DeviceObject.make).
func NewDeviceObjectStep(sourcePath, platform, deviceCompiler, scratchRoot string, overloads *ExtractOverloadsStep) *DeviceObjectStep {
	return &DeviceObjectStep{
		SourcePath:     sourcePath,
		Platform:       platform,
		DeviceCompiler: deviceCompiler,
		ScratchRoot:    scratchRoot,
		overloads:      overloads,
	}
}

func (s *DeviceObjectStep) ID() string {
	return "device-object:" + s.Platform + ":" + s.SourcePath
}

func (s *DeviceObjectStep) Deps() []Step { return []Step{s.overloads} }

func (s *DeviceObjectStep) Make(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scratch := CacheDir(s.ScratchRoot, "device-object", []byte(s.Platform), []byte(s.SourcePath))
	if err := EnsureDir(scratch); err != nil {
		return fmt.Errorf("deviceObject: %w", err)
	}

	rendered, err := optionsmodule.Render(s.overloads.Overloads, optionsmodule.SideDevice, s.Platform)
	if err != nil {
		return fmt.Errorf("deviceObject: rendering options module: %w", err)
	}
	modulePath := filepath.Join(scratch, "options_module.txt")
	if _, _, err := optionsmodule.WriteIfChanged(modulePath, rendered); err != nil {
		return fmt.Errorf("deviceObject: %w", err)
	}

	objectPath := filepath.Join(scratch, "device.o")
	cmd := exec.CommandContext(ctx, s.DeviceCompiler,
		"-target", "amdgcn-amd-amdhsa",
		"-mcpu="+s.Platform,
		"--zhc-options-module="+modulePath,
		"-c", s.SourcePath,
		"-o", objectPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("deviceObject: device compiler failed on %s: %w", s.SourcePath, err)
	}

	code, err := os.ReadFile(objectPath)
	if err != nil {
		return fmt.Errorf("deviceObject: reading compiled object: %w", err)
	}
	obj, err := elfreader.Parse(code)
	if err != nil {
		return fmt.Errorf("deviceObject: %w", err)
	}
	md, err := amdgpu.ExtractDeviceMetadata(obj)
	if err != nil {
		return fmt.Errorf("deviceObject: %w", err)
	}

	matched, unknown, missing, err := amdgpu.CrossReference(s.overloads.Overloads, md)
	if err != nil {
		return fmt.Errorf("deviceObject: %w", err)
	}
	if len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "deviceObject: %s: device object exports %d kernel(s) not required by the host:\n", s.SourcePath, len(unknown))
		for _, name := range unknown {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("deviceObject: %s:\n%s%w", s.SourcePath, amdgpu.FormatMissing(missing), zhcerr.ErrMissingKernelDeclaration)
	}

	s.ObjectPath = objectPath
	s.Code = code
	s.Target = md.Target
	s.Matched = matched
	return nil
}
