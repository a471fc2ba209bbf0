package amdgpu

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateWrapperSourceEmbedsBundleAndSymbol(t *testing.T) {
	src := GenerateWrapperSource("/scratch/bundle.hipfb")
	if !strings.Contains(src, WrapperSymbol) {
		t.Errorf("wrapper source does not reference %q", WrapperSymbol)
	}
	if !strings.Contains(src, `.incbin "/scratch/bundle.hipfb"`) {
		t.Error("wrapper source does not .incbin the bundle path")
	}
	if !strings.Contains(src, ".hip_fatbin") {
		t.Error("wrapper source does not target the .hip_fatbin section")
	}
	if !strings.Contains(src, ".p2align 12") {
		t.Error("wrapper source does not align to WrapperAlignment (4096 = 2^12)")
	}
}

func TestCompileWrapperRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := CompileWrapper(ctx, "cc", "/scratch/bundle.hipfb", t.TempDir(), "/scratch/out.o")
	if err == nil {
		t.Error("expected an error for an already-cancelled context")
	}
}
