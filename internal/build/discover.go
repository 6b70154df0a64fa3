// Package build implements the external adapter layer specified only by
// interface in spec.md §1: source discovery and rebuild-reason tracking
// (Phase A), per-kind cross-compiler invocation (Phase B), and the bounded
// worker pool the two run under.
package build

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Reason names why a Job needs rebuilding, mirroring the upstream
// BuildReason enum (original_source/src/jobs.rs) field-for-field except for
// the unused Forced variant, which only ever appeared as a placeholder
// before the first reason computation.
type Reason int

const (
	// ReasonNone means the job is up to date and does not need a rebuild.
	ReasonNone Reason = iota
	ReasonObjMissing
	ReasonSrcMissing
	ReasonSrcNewer
	ReasonDependencyNewer
	ReasonDependencyMissing
	ReasonNoDependencyFile
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonObjMissing:
		return "object file missing"
	case ReasonSrcMissing:
		return "source file missing"
	case ReasonSrcNewer:
		return "source newer than object"
	case ReasonDependencyNewer:
		return "dependency newer than object"
	case ReasonDependencyMissing:
		return "dependency missing"
	case ReasonNoDependencyFile:
		return "no dependency file"
	default:
		return "unknown"
	}
}

// Kind is the source language of a Job, driving which compiler and flag
// set Phase B invokes it with.
type Kind int

const (
	KindC Kind = iota
	KindCPP
	KindASM
)

func kindFromExt(ext string) (Kind, bool) {
	switch strings.ToLower(ext) {
	case ".c":
		return KindC, true
	case ".cpp":
		return KindCPP, true
	case ".s":
		return KindASM, true
	default:
		return 0, false
	}
}

// Job is one source file slated for (possibly skipped) compilation.
type Job struct {
	Kind Kind

	SrcPath string
	ObjPath string
	DepPath string

	Reason Reason
}

// BuildRequired reports whether Reason is anything other than ReasonNone.
func (j *Job) BuildRequired() bool { return j.Reason != ReasonNone }

// UpdateBuildReason recomputes j.Reason from the current filesystem state
// of its source, object, and dependency files.
func (j *Job) UpdateBuildReason() {
	j.Reason = calcBuildReason(j.SrcPath, j.ObjPath, j.DepPath)
}

func calcBuildReason(srcPath, objPath, depPath string) Reason {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return ReasonSrcMissing
	}
	objInfo, err := os.Stat(objPath)
	if err != nil {
		return ReasonObjMissing
	}

	if srcInfo.ModTime().After(objInfo.ModTime()) {
		return ReasonSrcNewer
	}

	return depRequiresRebuild(objInfo.ModTime(), depPath)
}

// depRequiresRebuild parses a Makefile-style ".d" dependency file and
// checks every listed file's mtime against the object's, per spec.md §6
// "Dependency file parsing".
func depRequiresRebuild(objTime time.Time, depPath string) Reason {
	f, err := os.Open(depPath)
	if err != nil {
		return ReasonNoDependencyFile
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		for _, tok := range strings.Fields(scanner.Text()) {
			tok = strings.TrimSpace(tok)
			if tok == "\\" || strings.HasSuffix(tok, ":") {
				continue
			}

			info, err := os.Stat(tok)
			if err != nil {
				return ReasonDependencyMissing
			}
			if info.ModTime().After(objTime) {
				return ReasonDependencyNewer
			}
		}
	}
	return ReasonNone
}

func replacePrefixAddSuffix(path, from, to, suffix string) (string, error) {
	rel, err := filepath.Rel(from, path)
	if err != nil {
		return "", err
	}
	return filepath.Join(to, rel) + suffix, nil
}

// Discover walks srcRoot recursively and returns one Job per .c/.cpp/.s
// file found, with ObjPath/DepPath mirrored under objRoot/depRoot and
// Reason left at ReasonNone (call UpdateBuildReason, or Job.Reason is
// populated already — see DiscoverAndEvaluate).
func Discover(srcRoot, objRoot, depRoot string) ([]*Job, error) {
	var jobs []*Job

	err := filepath.WalkDir(srcRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		kind, ok := kindFromExt(filepath.Ext(path))
		if !ok {
			return nil
		}

		objPath, err := replacePrefixAddSuffix(path, srcRoot, objRoot, ".o")
		if err != nil {
			return err
		}
		depPath, err := replacePrefixAddSuffix(path, srcRoot, depRoot, ".d")
		if err != nil {
			return err
		}

		jobs = append(jobs, &Job{
			Kind:    kind,
			SrcPath: path,
			ObjPath: objPath,
			DepPath: depPath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// DiscoverAndEvaluate runs Discover and then UpdateBuildReason on every
// resulting Job, the sequence Phase A always performs in practice.
func DiscoverAndEvaluate(srcRoot, objRoot, depRoot string) ([]*Job, error) {
	jobs, err := Discover(srcRoot, objRoot, depRoot)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		j.UpdateBuildReason()
	}
	return jobs, nil
}
