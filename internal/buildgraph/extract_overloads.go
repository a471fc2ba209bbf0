package buildgraph

import (
	"context"
	"fmt"
	"os"

	"github.com/offloadkit/zhc/internal/abival"
	"github.com/offloadkit/zhc/internal/elfreader"
	"github.com/offloadkit/zhc/internal/mangle"
	"github.com/offloadkit/zhc/internal/zhcerr"
)

// ExtractOverloadsStep reads the host object's symbol table and builds
// the OverloadSet every launch site requires (spec §4.7, §6's
// extractOverloads(host_object) constructor).
type ExtractOverloadsStep struct {
	// HostObjectPath is the already-compiled host object to scan. zhc
	// never compiles host source itself (spec §1 treats the host
	// compiler as an external collaborator); the CLI is responsible
	// for producing this path before wiring it into the graph.
	HostObjectPath string

	// Overloads is populated by Make on success.
	Overloads *abival.OverloadSet
}

func (s *ExtractOverloadsStep) ID() string   { return "extract-overloads:" + s.HostObjectPath }
func (s *ExtractOverloadsStep) Deps() []Step { return nil }

func (s *ExtractOverloadsStep) Make(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := os.ReadFile(s.HostObjectPath)
	if err != nil {
		return fmt.Errorf("extractOverloads: reading %s: %w", s.HostObjectPath, err)
	}
	obj, err := elfreader.Parse(buf)
	if err != nil {
		return fmt.Errorf("extractOverloads: %s: %w", s.HostObjectPath, err)
	}

	set := abival.NewOverloadSet(mangle.MustOverload)
	for _, sym := range obj.Symbols() {
		payload, isLaunchSite, ok := mangle.StripPrefix(sym.Name)
		if !ok || !isLaunchSite {
			continue
		}
		cfg, err := mangle.DemangleKernelConfig(payload)
		if err != nil {
			return fmt.Errorf("extractOverloads: %s: symbol %q: %w", s.HostObjectPath, sym.Name, err)
		}
		if err := abival.ValidateOverloadLen(cfg.Overload); err != nil {
			return fmt.Errorf("extractOverloads: %s: symbol %q: %v: %w", s.HostObjectPath, sym.Name, err, zhcerr.ErrInvalidMangledName)
		}
		set.Add(cfg.Kernel.Name, cfg.Overload)
	}

	s.Overloads = set
	return nil
}
