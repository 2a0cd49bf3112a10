package archive

import (
	"path"
	"strconv"
	"strings"

	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
)

/*
Validator

Specialized component to vet archive containers before extraction.
Responsibilities:
- Detect path-traversal member names against a virtual extraction root
- Detect decompression bombs from declared sizes and ratios alone
- Bound total declared output and member count
- Never decompress member content during validation

Validation walks the container's directory listing in order. Some checks
abort the scan: a single traversal attempt, or blowing the total-size
budget, already condemns the archive and scanning further members only
burns cycles on hostile input. Ratio violations are recorded but do not
abort, so a report can name every oversized member.

Nested archives are the caller's concern: re-invoke Validate on the
inner container after the outer member itself passed. The validator
never recurses into member contents.
*/
type Validator struct {
	metadataSink metadata.MetadataSink
}

func NewValidator(metadataSink metadata.MetadataSink) *Validator {
	return &Validator{metadataSink: metadataSink}
}

// Validate checks the declared member listing against the limits and
// returns a report. Extraction may proceed only on a clean report.
func (v *Validator) Validate(members []Member, limits config.ArchiveLimits) Report {
	var report Report

	for i, member := range members {
		if limits.MaxMemberCount() > 0 && i >= limits.MaxMemberCount() {
			report.Violations = append(report.Violations, Violation{
				Kind: MemberCountExceeded,
			})
			break
		}

		if _, ok := normalizeMemberName(member.Name); !ok {
			report.Violations = append(report.Violations, Violation{
				Kind:       PathTraversalDetected,
				MemberName: member.Name,
			})
			// A single traversal attempt invalidates the whole archive.
			break
		}

		ratio := float64(member.UncompressedSize) / float64(max(member.CompressedSize, 1))
		if ratio > report.MaxSingleRatio {
			report.MaxSingleRatio = ratio
		}
		if ratio > limits.MaxCompressionRatio() {
			report.Violations = append(report.Violations, Violation{
				Kind:       RatioExceeded,
				MemberName: member.Name,
				Ratio:      ratio,
			})
		}

		report.TotalUncompressed += member.UncompressedSize
		if report.TotalUncompressed > limits.MaxUncompressedSize() {
			report.Violations = append(report.Violations, Violation{
				Kind: TotalSizeExceeded,
			})
			break
		}
	}

	if !report.Clean() {
		v.recordRejection(report)
	}

	return report
}

func (v *Validator) recordRejection(report Report) {
	first := report.Violations[0]
	v.metadataSink.RecordDenial(
		first.MemberName,
		string(first.Kind),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrViolations, strconv.Itoa(len(report.Violations))),
			metadata.NewAttr(metadata.AttrTotalBytes, strconv.FormatUint(report.TotalUncompressed, 10)),
		},
	)
}

// normalizeMemberName resolves the declared name against a virtual
// extraction root. It returns false when the name is absolute, carries
// a drive letter, or escapes the root through ".." segments.
func normalizeMemberName(name string) (string, bool) {
	// ZIP names are defined with forward slashes, but hostile archives
	// use backslashes to sneak past naive checks on Windows.
	name = strings.ReplaceAll(name, `\`, "/")

	if name == "" {
		return "", false
	}
	if strings.HasPrefix(name, "/") {
		return "", false
	}
	if len(name) >= 2 && name[1] == ':' && isASCIILetter(name[0]) {
		return "", false
	}

	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}

	return cleaned, true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
