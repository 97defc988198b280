package model

import "testing"

func TestFingerprintForModeStrictIncludesPlatform(t *testing.T) {
	f := Fingerprint{Platform: "linux", Arch: "amd64", PM: PMNpm, Engine: EngineName}
	strict := f.ForMode(ModeStrict)
	if strict["platform"] != "linux" {
		t.Fatalf("expected strict mode to include platform, got %v", strict)
	}
}

func TestFingerprintForModeRelaxedDropsNodeMajorAndLibc(t *testing.T) {
	f := Fingerprint{Platform: "linux", Arch: "amd64", NodeMajor: 20, Libc: "glibc-2.35", PM: PMNpm, Engine: EngineName}
	relaxed := f.ForMode(ModeRelaxed)
	if _, ok := relaxed["nodeMajor"]; ok {
		t.Fatalf("expected relaxed mode to omit nodeMajor, got %v", relaxed)
	}
	if _, ok := relaxed["libc"]; ok {
		t.Fatalf("expected relaxed mode to omit libc, got %v", relaxed)
	}
	if relaxed["platform"] != "linux" {
		t.Fatalf("expected relaxed mode to keep platform, got %v", relaxed)
	}
}

func TestFingerprintEqual(t *testing.T) {
	a := Fingerprint{Platform: "linux", Arch: "amd64", NodeMajor: 20, PM: PMNpm}
	b := a
	if !a.Equal(b) {
		t.Fatalf("expected identical fingerprints to be equal")
	}
	b.NodeMajor = 18
	if a.Equal(b) {
		t.Fatalf("expected differing NodeMajor to break equality")
	}
}

func TestMaterializationStatsAdd(t *testing.T) {
	var total MaterializationStats
	total.Add(MaterializationStats{Files: 3, FilesLinked: 2, FilesCopied: 1})
	total.Add(MaterializationStats{Files: 2, FilesCopied: 2, LinkFallbackCopies: 1})

	if total.Files != 5 || total.FilesLinked != 2 || total.FilesCopied != 3 || total.LinkFallbackCopies != 1 {
		t.Fatalf("unexpected accumulated stats: %+v", total)
	}
}

func TestDefaultStateIndexHasUsableSkeleton(t *testing.T) {
	idx := DefaultStateIndex()
	if idx.Projects == nil || idx.CacheEntries == nil || idx.MaterializationIndex == nil {
		t.Fatalf("expected non-nil maps in default skeleton: %+v", idx)
	}
	if idx.GC.MaxSizeBytes <= 0 || idx.GC.MaxAgeDays <= 0 {
		t.Fatalf("expected sane GC defaults, got %+v", idx.GC)
	}
}
