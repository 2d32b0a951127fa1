package placement

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"clinikondo/internal/services"
)

// SharedRootDir is the folder under the output root that holds documents
// filed into the shared bucket.
const SharedRootDir = "compartilhado"

// Resolver computes destination paths inside a fixed output root.
type Resolver struct {
	outputRoot string
}

// NewResolver constructs a resolver rooted at outputRoot.
func NewResolver(outputRoot string) *Resolver {
	return &Resolver{outputRoot: filepath.Clean(outputRoot)}
}

// DestinationDir resolves the directory for a patient/type pair, routed
// through the shared bucket when shared is set.
func (r *Resolver) DestinationDir(patientSlug, typeSubfolder string, shared bool) string {
	if shared {
		return filepath.Join(r.outputRoot, SharedRootDir, patientSlug, typeSubfolder)
	}
	return filepath.Join(r.outputRoot, patientSlug, typeSubfolder)
}

// UniqueDestination returns target unchanged when it is unused, otherwise
// the first free numbered variant ({stem}-1{ext}, {stem}-2{ext}, ...).
// Probing is stat-based and assumes single-process sequential execution.
func (r *Resolver) UniqueDestination(target string) string {
	if !pathExists(target) {
		return target
	}
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for counter := 1; ; counter++ {
		candidate := stem + "-" + strconv.Itoa(counter) + ext
		if !pathExists(candidate) {
			return candidate
		}
	}
}

// EnsureWithinRoot rejects any target that resolves outside the output
// root, including escapes via parent-directory traversal or symlinked
// ancestors. Violations are never silently corrected.
func (r *Resolver) EnsureWithinRoot(target string) error {
	absRoot, err := filepath.Abs(r.outputRoot)
	if err != nil {
		return services.Wrap(services.ErrUnsafePath, "placement", "resolve root", r.outputRoot, err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return services.Wrap(services.ErrUnsafePath, "placement", "resolve target", target, err)
	}
	if !isWithin(absRoot, absTarget) {
		return services.Wrap(services.ErrUnsafePath, "placement", "check target",
			fmt.Sprintf("%s escapes output root %s", target, r.outputRoot), nil)
	}

	// Symlinked ancestors can point outside the root even when the lexical
	// path looks safe. Resolve the deepest existing ancestor and re-check.
	resolvedRoot := absRoot
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		resolvedRoot = resolved
	}
	ancestor, remainder := deepestExisting(absTarget)
	if ancestor != "" {
		resolvedAncestor, err := filepath.EvalSymlinks(ancestor)
		if err != nil {
			return services.Wrap(services.ErrUnsafePath, "placement", "resolve ancestor", ancestor, err)
		}
		resolvedTarget := filepath.Join(resolvedAncestor, remainder)
		if !isWithin(resolvedRoot, resolvedTarget) {
			return services.Wrap(services.ErrUnsafePath, "placement", "check symlinks",
				fmt.Sprintf("%s resolves outside output root %s", target, r.outputRoot), nil)
		}
	}
	return nil
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func deepestExisting(path string) (ancestor, remainder string) {
	current := path
	var tail []string
	for {
		if pathExists(current) {
			if len(tail) == 0 {
				return current, ""
			}
			// tail was collected leaf-first.
			for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
				tail[i], tail[j] = tail[j], tail[i]
			}
			return current, filepath.Join(tail...)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ""
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
