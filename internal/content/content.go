// Package content defines the collaborator interfaces the room core uses to
// turn an opaque question reference into question text, options and an answer
// commitment. Storage resolution and decryption are external services; this
// package only owns the narrow contracts and the self-access authorization
// gate in front of them.
package content

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/victornm/trivia/internal/errors"
)

// ErrAccessDenied indicates the caller may not decrypt the requested resource.
var ErrAccessDenied = stderrors.New("caller is not the owner of the requested resource")

// Storage resolves an opaque content reference to ciphertext bytes.
type Storage interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// Revealed is the decrypted form of one stored question.
type Revealed struct {
	Text       string
	Options    []string
	Commitment []byte
	Points     int64
}

// Decrypter turns ciphertext into question content. Implementations hold the
// decryption keys; callers must pass the ApproveAccess gate first.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) (Revealed, error)
}

// ApproveAccess authorizes a decryption request. The policy is strict
// self-access: the caller's identity must exactly equal the requested
// resource identifier. There is no access-control list behind it.
func ApproveAccess(requestedID, callerID string) error {
	if requestedID != callerID {
		return errors.New(errors.CodePermissionDenied,
			errors.WithCause(ErrAccessDenied),
			errors.WithMessagef("access to %q denied for caller %q", requestedID, callerID),
		)
	}

	return nil
}

// InlineStorage treats the reference itself as the stored ciphertext. It
// stands in for a real content-storage service in local setups and tests.
type InlineStorage struct{}

func (InlineStorage) Resolve(_ context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("content: empty reference"))
	}

	return []byte(ref), nil
}

// StubDecrypter returns fixed placeholder content for any ciphertext. The
// commitment always matches answer option "A" and the question is worth one
// point. The real decryption contract is implemented behind the Decrypter
// interface by an external service.
type StubDecrypter struct {
	// Commit derives the answer commitment from the placeholder answer text.
	Commit func(text string) []byte
}

const (
	stubAnswer = "A"
	stubPoints = 1
)

func (d StubDecrypter) Decrypt(_ context.Context, ciphertext []byte) (Revealed, error) {
	if d.Commit == nil {
		return Revealed{}, fmt.Errorf("content: stub decrypter has no commit func")
	}

	return Revealed{
		Text:       fmt.Sprintf("Placeholder question for %q", ciphertext),
		Options:    []string{"A", "B", "C", "D"},
		Commitment: d.Commit(stubAnswer),
		Points:     stubPoints,
	}, nil
}
