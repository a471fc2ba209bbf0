// Command zhc cross-compiles a heterogeneous host/device program pair
// targeting AMDGPU offload: it extracts the overloads a host object
// requires, compiles a matching device object per platform, and packs
// the device objects into a single HIP fat binary, wrapped in an object
// file for the host linker; zhc does not link it with the host object.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/offloadkit/zhc/internal/amdgpu"
	"github.com/offloadkit/zhc/internal/buildgraph"
)

var (
	hostSrcFlag   = flag.String("host-src", "", "path to the host source file to compile")
	deviceSrcFlag = flag.String("device-src", "", "path to the device source file to compile")
	outFlag       = flag.String("o", "", "output path for the offload library object (the wrapped fat binary to link with the host object)")
	jobsFlag      = flag.Int("j", 1, "maximum number of build-graph steps to run concurrently (reserved; steps are always scheduled as soon as their deps are satisfied)")
	scratchFlag   = flag.String("scratch-dir", "", "directory for content-addressed scratch output (default: a temp dir)")
	keepScratch   = flag.Bool("keep-scratch", false, "maintain a 'latest' symlink into the scratch directory for debugging")
	hostCCFlag    = flag.String("host-cc", "cc", "host compiler to invoke as a subprocess")
	deviceCCFlag = flag.String("device-cc", "amdclang++", "device compiler to invoke as a subprocess")
	mcpuFlag     = flag.String("mcpu", "gfx90a", "AMDGPU target ISA (the one platform this driver supports)")
	hostArchFlag = flag.String("host-arch", "x86_64", "host triple arch component for the fat binary's placeholder entry")
	hostOSFlag   = flag.String("host-os", "linux", "host triple os component for the fat binary's placeholder entry")
	hostABIFlag  = flag.String("host-abi", "gnu", "host triple abi component for the fat binary's placeholder entry")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s build -host-src <file> -device-src <file> -o <path> [-j N] [-v level]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	if len(os.Args) < 2 || os.Args[1] != "build" {
		usage()
		os.Exit(1)
	}
	flag.CommandLine.Parse(os.Args[2:])
	defer glog.Flush()

	if *hostSrcFlag == "" || *deviceSrcFlag == "" || *outFlag == "" {
		fmt.Fprintln(os.Stderr, "-host-src, -device-src, and -o are all required")
		usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "zhc: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	scratchRoot := *scratchFlag
	if scratchRoot == "" {
		dir, err := os.MkdirTemp("", "zhc-scratch-")
		if err != nil {
			return fmt.Errorf("creating scratch directory: %w", err)
		}
		scratchRoot = dir
	}
	if err := buildgraph.EnsureDir(scratchRoot); err != nil {
		return err
	}
	if *keepScratch {
		latest := filepath.Join(filepath.Dir(scratchRoot), "latest")
		os.Remove(latest)
		if err := os.Symlink(scratchRoot, latest); err != nil {
			glog.V(1).Infof("zhc: could not maintain 'latest' scratch symlink: %v", err)
		}
	}

	hostObjectPath := filepath.Join(scratchRoot, "host.o")
	if err := compileHostObject(*hostSrcFlag, hostObjectPath); err != nil {
		return err
	}

	extract := &buildgraph.ExtractOverloadsStep{HostObjectPath: hostObjectPath}
	device := buildgraph.NewDeviceObjectStep(*deviceSrcFlag, *mcpuFlag, *deviceCCFlag, scratchRoot, extract)
	library := buildgraph.NewOffloadLibraryStep(*hostCCFlag, scratchRoot, *outFlag).
		AddKernels(device).
		SetHostTarget(amdgpu.HostTriple{
			Arch:   *hostArchFlag,
			Vendor: "unknown",
			OS:     *hostOSFlag,
			ABI:    *hostABIFlag,
		})

	glog.V(1).Infof("zhc: building %s -> %s (jobs=%d)", *hostSrcFlag, *outFlag, *jobsFlag)

	g := buildgraph.NewGraph()
	if err := g.Run(context.Background(), library); err != nil {
		return err
	}

	glog.V(1).Infof("zhc: wrote %s", library.ObjectPath)
	return nil
}
