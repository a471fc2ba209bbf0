package optionsmodule

import "testing"

func TestParseRejectsUnmatchedCloseBrace(t *testing.T) {
	if _, err := Parse("}\n"); err == nil {
		t.Error("expected an error for an unmatched '}'")
	}
}

func TestParseRejectsNestedKernelBlock(t *testing.T) {
	src := "kernel \"foo\" {\nkernel \"bar\" {\n}\n}\n"
	if _, err := Parse(src); err == nil {
		t.Error("expected an error for a nested kernel block")
	}
}

func TestParseRejectsOverloadOutsideKernel(t *testing.T) {
	if _, err := Parse("overload \"3_foo0\"\n"); err == nil {
		t.Error("expected an error for an overload line outside a kernel block")
	}
}

func TestParseRejectsUnterminatedKernelBlock(t *testing.T) {
	if _, err := Parse("kernel \"foo\" {\noverload \"0\"\n"); err == nil {
		t.Error("expected an error for an unterminated kernel block")
	}
}

func TestParseRejectsUnrecognizedSyntax(t *testing.T) {
	if _, err := Parse("garbage line\n"); err == nil {
		t.Error("expected an error for unrecognized syntax")
	}
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	src := "// Code generated by zhc. DO NOT EDIT.\nside = host\n\nkernel \"foo\" {\n}\n"
	mod, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if mod.Side != SideHost {
		t.Errorf("Side = %q, want host", mod.Side)
	}
	if len(mod.Order) != 1 || mod.Order[0] != "foo" {
		t.Errorf("Order = %v, want [foo]", mod.Order)
	}
}
