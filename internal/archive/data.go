package archive

import "fmt"

// Member is one entry's declared metadata from an archive's directory
// listing. The sizes come from the container format and are not trusted:
// validation reasons about them without decompressing a single byte.
type Member struct {
	Name             string
	CompressedSize   uint64
	UncompressedSize uint64
}

// ViolationKind identifies which check a member failed.
type ViolationKind string

const (
	PathTraversalDetected ViolationKind = "path_traversal_detected"
	RatioExceeded         ViolationKind = "ratio_exceeded"
	TotalSizeExceeded     ViolationKind = "total_size_exceeded"
	MemberCountExceeded   ViolationKind = "member_count_exceeded"
)

// Violation records one failed check. MemberName is the raw declared
// name, not the normalized form, so the report points at what the
// archive actually contains.
type Violation struct {
	Kind       ViolationKind
	MemberName string

	// Ratio is set for RatioExceeded violations, zero otherwise.
	Ratio float64
}

func (v Violation) String() string {
	switch v.Kind {
	case RatioExceeded:
		return fmt.Sprintf("%s: %q (ratio %.1f)", v.Kind, v.MemberName, v.Ratio)
	case TotalSizeExceeded, MemberCountExceeded:
		return string(v.Kind)
	default:
		return fmt.Sprintf("%s: %q", v.Kind, v.MemberName)
	}
}

// Report is the outcome of validating one archive container.
// A non-empty Violations slice means no member may be extracted: the
// whole archive is treated as hostile, never just the offending entry.
type Report struct {
	TotalUncompressed uint64
	MaxSingleRatio    float64
	Violations        []Violation
}

// Clean reports whether extraction may proceed.
func (r Report) Clean() bool {
	return len(r.Violations) == 0
}
