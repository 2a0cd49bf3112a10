package archive

import (
	"archive/zip"
	"fmt"
	"io"
)

// MembersFromZip lists a ZIP container's declared member metadata from
// its central directory. Only headers are read; nothing is decompressed.
func MembersFromZip(reader *zip.Reader) []Member {
	members := make([]Member, 0, len(reader.File))
	for _, file := range reader.File {
		members = append(members, Member{
			Name:             file.Name,
			CompressedSize:   file.CompressedSize64,
			UncompressedSize: file.UncompressedSize64,
		})
	}
	return members
}

// OpenZip opens a ZIP container from a random-access reader and returns
// its member listing. The error is not retryable: a listing that cannot
// be read means the container is malformed or truncated.
func OpenZip(readerAt io.ReaderAt, size int64) ([]Member, *ArchiveError) {
	reader, err := zip.NewReader(readerAt, size)
	if err != nil {
		return nil, &ArchiveError{
			Message:   fmt.Sprintf("open zip: %v", err),
			Retryable: false,
			Cause:     ErrCauseUnreadableContainer,
		}
	}
	return MembersFromZip(reader), nil
}
