package splitter

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes chunk ids to this engine. Any fixed namespace works;
// what matters is that it never changes, or every chunk would re-identify.
var idNamespace = uuid.MustParse("8c2e8d77-41ce-47d5-9f9c-6f1d2b6a0e53")

// ChunkID derives the content-addressed identifier for a fragment. The id is
// a UUIDv5 over the document id, the structural path and the normalized
// fragment text, so it is stable across re-splits of unchanged content,
// changes with any edit to text or structure, and is a valid object id for
// the vector store. Two documents with byte-identical fragments get distinct
// ids because the document id is part of the input.
func ChunkID(documentID string, f Fragment) string {
	var b strings.Builder
	b.WriteString(documentID)
	b.WriteByte(0)
	b.WriteString(strings.Join(f.Path, "\x1f"))
	b.WriteByte(0)
	b.WriteString(strings.TrimSpace(f.Text))
	return uuid.NewSHA1(idNamespace, []byte(b.String())).String()
}
