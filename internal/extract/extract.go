// Package extract turns file content into ordered symbol chunks using
// tree-sitter grammars. Extraction is deterministic: identical input always
// yields an identical, order-stable sequence.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Symbol kinds. KindFile marks the whole-file fallback chunk produced for
// unsupported languages.
const (
	KindFunction  = "function"
	KindMethod    = "method"
	KindClass     = "class"
	KindStruct    = "struct"
	KindInterface = "interface"
	KindEnum      = "enum"
	KindTrait     = "trait"
	KindTypeAlias = "type_alias"
	KindVariable  = "variable"
	KindFile      = "file"
)

// Symbol is an extracted semantic unit, before it is assigned a store id.
// Identity within a file is (kind, name, language); ContentHash detects
// whether re-embedding is needed without changing identity.
type Symbol struct {
	Name        string
	Kind        string
	Language    string
	StartLine   int
	EndLine     int
	Content     string
	ContentHash string
}

// Extractor parses source files and extracts symbols.
type Extractor struct {
	registry *Registry
}

// New creates an extractor backed by the given registry.
func New(r *Registry) *Extractor {
	return &Extractor{registry: r}
}

// Extract returns the ordered symbol sequence for one file. Files with no
// registered grammar yield a single whole-file fallback chunk. A parse or
// query failure is returned to the caller, which treats it as an isolated
// per-file extraction failure.
func (e *Extractor) Extract(path string, src []byte) ([]Symbol, error) {
	spec := e.registry.Lookup(path)
	if spec == nil {
		return []Symbol{fallbackChunk(path, src)}, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", spec.Name, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var caps []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var node *sitter.Node
		var kind, name string
		for _, c := range m.Captures {
			capName := q.CaptureNameForId(c.Index)
			if strings.HasPrefix(capName, "kind.") {
				node = c.Node
				kind = strings.TrimPrefix(capName, "kind.")
			} else if capName == "name" {
				name = c.Node.Content(src)
			}
		}
		if node == nil {
			continue
		}
		caps = append(caps, capture{
			name:      name,
			kind:      kind,
			startLine: int(node.StartPoint().Row) + 1,
			endLine:   int(node.EndPoint().Row) + 1,
			startByte: node.StartByte(),
			endByte:   node.EndByte(),
		})
	}

	caps = dedup(caps)

	lines := strings.Split(string(src), "\n")
	syms := make([]Symbol, 0, len(caps))
	for _, c := range caps {
		content := sliceLines(lines, c.startLine, c.endLine)
		syms = append(syms, Symbol{
			Name:        c.name,
			Kind:        c.kind,
			Language:    spec.Name,
			StartLine:   c.startLine,
			EndLine:     c.endLine,
			Content:     content,
			ContentHash: HashContent(content),
		})
	}
	disambiguate(syms)
	return syms, nil
}

// HashContent returns the hex sha256 of a symbol body.
func HashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

func fallbackChunk(path string, src []byte) Symbol {
	content := string(src)
	lineCount := strings.Count(content, "\n") + 1
	return Symbol{
		Name:        path,
		Kind:        KindFile,
		Language:    "",
		StartLine:   1,
		EndLine:     lineCount,
		Content:     content,
		ContentHash: HashContent(content),
	}
}

// dedup removes captures fully contained within a larger capture and fixes
// the final order by start byte. The sort makes the output independent of
// tree-sitter's match ordering.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		if li, lj := caps[i].endByte-caps[i].startByte, caps[j].endByte-caps[j].startByte; li != lj {
			return li > lj
		}
		// Same span captured by two patterns (e.g. a struct also matching the
		// generic type pattern): the lexically smaller kind wins, which keeps
		// the specific kinds ahead of type_alias.
		return caps[i].kind < caps[j].kind
	})

	var result []capture
	var lastEnd uint32
	for _, c := range caps {
		if c.startByte >= lastEnd || lastEnd == 0 {
			result = append(result, c)
			if c.endByte > lastEnd {
				lastEnd = c.endByte
			}
		}
	}
	return result
}

// disambiguate appends an index to repeated (kind, name) pairs so that
// identity stays unique and stable within one file.
func disambiguate(syms []Symbol) {
	seen := make(map[string]int, len(syms))
	for i := range syms {
		key := syms[i].Kind + "\x00" + syms[i].Name
		if n := seen[key]; n > 0 {
			syms[i].Name = fmt.Sprintf("%s#%d", syms[i].Name, n)
		}
		seen[key]++
	}
}

func sliceLines(lines []string, startLine, endLine int) string {
	start := startLine - 1
	end := endLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}
