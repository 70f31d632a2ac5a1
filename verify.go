package kurpod

import (
	"fmt"
	"os"

	"github.com/srv1n/kurpod/container"
)

// VerificationReport is the result of VerifyContainer: a structural reading
// of a container file that never attempts a passphrase against either
// header. Because a hidden header with no passphrase supplied at Init is
// filled with the same uniformly random bytes a real header's ciphertext
// and padding would produce, this report can only say whether a header
// slot exists at its fixed offset, never whether it holds a real volume —
// answering that would defeat the deniability property the format exists
// to provide.
type VerificationReport struct {
	Path                  string
	FileSize              int64
	HasStandardHeaderSlot bool
	HasHiddenHeaderSlot   bool
}

// VerifyContainer reports whether path is at least large enough to hold
// both fixed-offset header blocks a kurpod container always has. It opens
// the file read-only and never derives a key from any passphrase, so it
// cannot distinguish a genuine header from a random-filled decoy, by
// design — it only answers "does this look like a kurpod container file at
// all", the question tooling needs before it ever prompts for a passphrase.
func VerifyContainer(path string) (VerificationReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return VerificationReport{}, wrapErr("verify_container", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return VerificationReport{}, wrapErr("verify_container", path, err)
	}

	report := VerificationReport{Path: path, FileSize: fi.Size()}
	report.HasStandardHeaderSlot = fi.Size() >= container.HeaderSize
	report.HasHiddenHeaderSlot = fi.Size() >= 2*container.HeaderSize

	if !report.HasHiddenHeaderSlot {
		return report, newError(KindCorruption, "verify_container", path,
			fmt.Errorf("file is %d bytes, too small to hold both header blocks", fi.Size()))
	}
	return report, nil
}
